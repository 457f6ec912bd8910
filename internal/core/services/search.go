package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure searchService implements the interface.
var _ driving.SearchService = (*searchService)(nil)

// searchService embeds queries and asks the vector store for the nearest chunks.
type searchService struct {
	embedder     *Embedder
	store        driven.VectorStore
	defaultLimit int
	logger       *zap.Logger
}

// NewSearchService creates a new search service.
// A defaultLimit <= 0 falls back to domain.DefaultSearchLimit.
func NewSearchService(
	embedder *Embedder,
	store driven.VectorStore,
	defaultLimit int,
	log *zap.Logger,
) driving.SearchService {
	if defaultLimit <= 0 {
		defaultLimit = domain.DefaultSearchLimit
	}
	return &searchService{
		embedder:     embedder,
		store:        store,
		defaultLimit: defaultLimit,
		logger:       logger.OrNop(log),
	}
}

// Search returns up to limit chunks ordered by ascending distance.
// An empty store yields an empty slice.
func (s *searchService) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}

	vectors, err := s.embedder.Embed(ctx, []string{query}, domain.EmbedModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := s.store.NearestNeighbors(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbours: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(neighbors))
	for _, n := range neighbors {
		results = append(results, domain.SearchResult{
			Content:        n.Chunk.Content,
			SourceDocument: n.Chunk.SourceDocument,
			Distance:       n.Distance,
		})
	}

	s.logger.Debug("search", zap.String("query", query), zap.Int("limit", limit), zap.Int("results", len(results)))
	return results, nil
}
