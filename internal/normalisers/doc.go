// Package normalisers converts vault markdown into forms meant for display
// rather than indexing. Indexed chunk content is always the raw text.
package normalisers
