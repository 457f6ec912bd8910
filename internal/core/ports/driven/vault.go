package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Vault provides access to the markdown document tree.
// Paths are vault-relative with forward slashes.
type Vault interface {
	// List returns every indexable document path. A missing vault yields an empty list.
	List(ctx context.Context) ([]string, error)

	// Read returns the document. ok is false when it does not exist.
	Read(ctx context.Context, path string) (doc domain.Document, ok bool, err error)

	// Append adds text to the end of path, first writing header when the file is new.
	Append(ctx context.Context, path, header, text string) error
}
