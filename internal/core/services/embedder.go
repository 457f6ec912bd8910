package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/metrics"
)

// Embedder batches texts for the embedding provider and paces successive calls.
// The pacing limiter is shared by all callers so concurrent indexing cannot
// exceed the provider's rate.
type Embedder struct {
	provider  driven.EmbeddingProvider
	batchSize int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewEmbedder creates an embedder. provider may be nil, in which case
// Available reports false and Embed fails with domain.ErrEmbeddingUnavailable.
func NewEmbedder(provider driven.EmbeddingProvider, cfg domain.EmbeddingConfig, log *zap.Logger) *Embedder {
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > domain.MaxEmbedBatchSize {
		batchSize = domain.MaxEmbedBatchSize
	}
	return &Embedder{
		provider:  provider,
		batchSize: batchSize,
		limiter:   newPacer(cfg.BatchDelay),
		logger:    logger.OrNop(log),
	}
}

// newPacer allows one call immediately and then one call per delay.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Available reports whether embeddings can be produced.
func (e *Embedder) Available() bool {
	return e != nil && e.provider != nil
}

// Dimensions returns the provider's vector size, or 0 when unavailable.
func (e *Embedder) Dimensions() int {
	if !e.Available() {
		return 0
	}
	return e.provider.Dimensions()
}

// Embed returns one vector per text in input order.
// Texts are sent in batches of at most the configured batch size. Provider
// errors are returned as-is (wrapped) without retry. Every vector must have
// the provider's reported dimension.
func (e *Embedder) Embed(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	if !e.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown embed mode %q", domain.ErrInvalidInput, mode)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.provider.EmbedBatch(ctx, batch, mode)
		metrics.EmbeddingBatches.WithLabelValues(string(mode), metrics.Result(err)).Inc()
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embed batch %d-%d: provider returned %d vectors for %d texts: %w",
				start, end, len(vectors), len(batch), domain.ErrCountMismatch)
		}
		if dims := e.provider.Dimensions(); dims > 0 {
			for i, v := range vectors {
				if len(v) != dims {
					return nil, fmt.Errorf("embed batch %d-%d: vector %d has %d values, provider reports %d: %w",
						start, end, start+i, len(v), dims, domain.ErrDimensionMismatch)
				}
			}
		}
		metrics.EmbeddedTexts.WithLabelValues(string(mode)).Add(float64(len(batch)))

		e.logger.Debug("embedded batch",
			zap.String("mode", string(mode)),
			zap.Int("from", start),
			zap.Int("count", len(batch)))
		out = append(out, vectors...)
	}

	return out, nil
}
