package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SearchService provides semantic retrieval over the vault to external actors.
type SearchService interface {
	// Search returns up to limit chunks most relevant to query.
	// A limit <= 0 uses the configured default.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}
