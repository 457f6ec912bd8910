// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text with one external call.
// This is an optional service - when nil, indexing is skipped and search is disabled.
//
// Batching and pacing across calls are handled by the core Embedder; a provider
// only ever sees one batch at a time.
//
// Implementations may include:
//   - Voyage AI (voyage-3.5-lite with output_dimension=1024)
//   - OpenAI (text-embedding-3-small with dimensions=1024)
type EmbeddingProvider interface {
	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
