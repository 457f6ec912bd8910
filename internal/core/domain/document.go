package domain

import "time"

// Document is a markdown file in the vault.
type Document struct {
	// Path is the vault-relative path using forward slashes, e.g. "memories/2026-02-12.md".
	Path string

	// Content is the raw UTF-8 file content.
	Content string

	// ModTime is the last modification time of the file.
	ModTime time.Time
}

// DocumentInfo describes a vault document for listings.
type DocumentInfo struct {
	Path string

	// Indexed is true when the vector store holds chunks for Path.
	Indexed bool
}

// Chunk represents a searchable unit within a document.
// Documents are split into chunks for granular retrieval; all chunks of a
// document are replaced together whenever the document is re-indexed.
type Chunk struct {
	// SourceDocument is the vault-relative path of the parent Document.
	SourceDocument string

	// Index is the ordinal position within the document, starting at 0.
	Index int

	// Content is the trimmed, non-empty text of this chunk.
	Content string
}

// IndexStats summarises a vault indexing run.
type IndexStats struct {
	// Documents is the number of documents that produced at least one chunk.
	Documents int

	// Chunks is the total number of chunks stored.
	Chunks int

	// Removed is the number of documents whose stored chunks were dropped.
	Removed int

	// Unchanged is the number of documents skipped because they were not
	// modified after their chunks were last stored.
	Unchanged int
}
