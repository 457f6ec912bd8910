package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// VectorStore persists chunks together with their embeddings and answers
// nearest-neighbour queries. A chunk is never observable without its embedding.
type VectorStore interface {
	// Replace atomically swaps every stored chunk of source for the given set.
	// Fails with domain.ErrCountMismatch before touching storage when
	// len(chunks) != len(embeddings). On any failure prior state is preserved.
	Replace(ctx context.Context, source string, chunks []domain.Chunk, embeddings [][]float32) error

	// Remove drops every chunk of source. No-op when nothing is stored.
	Remove(ctx context.Context, source string) error

	// NearestNeighbors returns up to k chunks ordered by ascending cosine distance.
	NearestNeighbors(ctx context.Context, query []float32, k int) ([]domain.Neighbor, error)

	// Sources lists every source document with at least one stored chunk.
	Sources(ctx context.Context) ([]string, error)

	// SourceUpdates returns when each stored source was last replaced.
	SourceUpdates(ctx context.Context) (map[string]time.Time, error)

	// LatestCreated returns the newest creation time among chunks whose source
	// starts with prefix. A chunk whose content is unchanged by Replace keeps its
	// creation time. The zero time is returned when none exist.
	LatestCreated(ctx context.Context, prefix string) (time.Time, error)
}
