package domain

// EmbedMode tells the embedding service what the vector will be used for.
// It changes how the service optimises the vector, never its dimensionality.
type EmbedMode string

const (
	// EmbedModeDocument embeds text that will be stored and searched against.
	EmbedModeDocument EmbedMode = "document"

	// EmbedModeQuery embeds a search query.
	EmbedModeQuery EmbedMode = "query"
)

const (
	// DefaultDimensions is the embedding vector size used by the store.
	DefaultDimensions = 1024

	// MaxEmbedBatchSize is the largest number of texts sent in one embedding call.
	MaxEmbedBatchSize = 128
)

// Valid reports whether m is a known mode.
func (m EmbedMode) Valid() bool {
	return m == EmbedModeDocument || m == EmbedModeQuery
}
