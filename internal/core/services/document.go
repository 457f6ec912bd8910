package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ensure documentService implements the interface.
var _ driving.DocumentService = (*documentService)(nil)

type documentService struct {
	vault driven.Vault
	store driven.VectorStore
}

// NewDocumentService creates a new document service.
// store may be nil, in which case no document is reported as indexed.
func NewDocumentService(vault driven.Vault, store driven.VectorStore) driving.DocumentService {
	return &documentService{vault: vault, store: store}
}

// List returns the vault documents in path order.
func (s *documentService) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	paths, err := s.vault.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}

	indexed := make(map[string]bool)
	if s.store != nil {
		sources, err := s.store.Sources(ctx)
		if err != nil {
			return nil, fmt.Errorf("list indexed sources: %w", err)
		}
		for _, src := range sources {
			indexed[src] = true
		}
	}

	infos := make([]domain.DocumentInfo, len(paths))
	for i, p := range paths {
		infos[i] = domain.DocumentInfo{Path: p, Indexed: indexed[p]}
	}
	return infos, nil
}

// Get reads one document from the vault.
func (s *documentService) Get(ctx context.Context, path string) (domain.Document, error) {
	doc, ok, err := s.vault.Read(ctx, path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return doc, nil
}
