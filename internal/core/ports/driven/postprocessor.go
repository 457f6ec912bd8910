package driven

import "github.com/custodia-labs/recall/internal/core/domain"

// Chunker splits a document into ordered, bounded chunks.
// Implementations must be deterministic.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits content of source into chunks indexed from 0.
	Chunk(source, content string) []domain.Chunk
}
