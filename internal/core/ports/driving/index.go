package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IndexService keeps the vector store in step with the vault.
type IndexService interface {
	// IndexVault re-indexes every document modified since it was last stored
	// and drops documents that vanished.
	IndexVault(ctx context.Context) (domain.IndexStats, error)

	// RebuildVault re-indexes every document regardless of modification time.
	RebuildVault(ctx context.Context) (domain.IndexStats, error)

	// IndexDocument re-indexes one document and returns the number of chunks stored.
	// An absent or empty document has its stored chunks removed.
	IndexDocument(ctx context.Context, path string) (int, error)

	// Remember appends content to the manual memory document for label and re-indexes it.
	// Returns the vault path written.
	Remember(ctx context.Context, label, content string) (string, error)
}
