package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// DocumentService exposes the vault documents to external actors.
type DocumentService interface {
	// List returns every vault document with its indexing status, in path order.
	List(ctx context.Context) ([]domain.DocumentInfo, error)

	// Get returns one document. Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, path string) (domain.Document, error)
}
