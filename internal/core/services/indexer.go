package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/metrics"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// ManualMemoryDir is the vault directory that holds memories saved on request.
const ManualMemoryDir = "manual"

// Indexer keeps the vector store in step with vault documents.
// Re-indexing a document always replaces all of its chunks at once.
type Indexer struct {
	vault    driven.Vault
	chunker  driven.Chunker
	embedder *Embedder
	store    driven.VectorStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewIndexer creates an indexer. embedder may be nil or unavailable, in which
// case indexing operations fail with domain.ErrEmbeddingUnavailable.
func NewIndexer(
	vault driven.Vault,
	chunker driven.Chunker,
	embedder *Embedder,
	store driven.VectorStore,
	log *zap.Logger,
) *Indexer {
	return &Indexer{
		vault:    vault,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// CanEmbed reports whether documents can be indexed.
func (i *Indexer) CanEmbed() bool {
	return i.embedder.Available()
}

// IndexVault chunks every vault document modified after its chunks were last
// stored, embeds all chunks in batches and replaces each document's stored
// chunks. Documents that are no longer in the vault, or now produce no chunks,
// are removed from the store.
func (i *Indexer) IndexVault(ctx context.Context) (domain.IndexStats, error) {
	return i.indexVault(ctx, false)
}

// RebuildVault is IndexVault without the modification time check.
func (i *Indexer) RebuildVault(ctx context.Context) (domain.IndexStats, error) {
	return i.indexVault(ctx, true)
}

func (i *Indexer) indexVault(ctx context.Context, force bool) (domain.IndexStats, error) {
	var stats domain.IndexStats
	if !i.CanEmbed() {
		return stats, domain.ErrEmbeddingUnavailable
	}

	paths, err := i.vault.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list vault: %w", err)
	}

	updated := map[string]time.Time{}
	if !force {
		if updated, err = i.store.SourceUpdates(ctx); err != nil {
			return stats, fmt.Errorf("list stored sources: %w", err)
		}
	}

	type docChunks struct {
		path   string
		chunks []domain.Chunk
	}
	var (
		docs  []docChunks
		empty []string
		texts []string
	)
	listed := make(map[string]bool, len(paths))
	for _, path := range paths {
		listed[path] = true
		doc, ok, err := i.vault.Read(ctx, path)
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", path, err)
		}
		if !ok {
			continue
		}
		if stored, ok := updated[path]; ok && !doc.ModTime.IsZero() && !doc.ModTime.After(stored) {
			stats.Unchanged++
			continue
		}
		chunks := i.chunker.Chunk(path, doc.Content)
		if len(chunks) == 0 {
			empty = append(empty, path)
			continue
		}
		docs = append(docs, docChunks{path: path, chunks: chunks})
		for _, c := range chunks {
			texts = append(texts, c.Content)
		}
	}

	i.logger.Info("chunked vault",
		zap.Int("documents", len(paths)),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("chunks", len(texts)))

	vectors, err := i.embedder.Embed(ctx, texts, domain.EmbedModeDocument)
	if err != nil {
		return stats, fmt.Errorf("embed vault: %w", err)
	}

	offset := 0
	for _, d := range docs {
		n := len(d.chunks)
		if err := i.store.Replace(ctx, d.path, d.chunks, vectors[offset:offset+n]); err != nil {
			return stats, fmt.Errorf("store %s: %w", d.path, err)
		}
		offset += n
		stats.Documents++
		stats.Chunks += n
	}

	stored, err := i.store.Sources(ctx)
	if err != nil {
		return stats, fmt.Errorf("list stored sources: %w", err)
	}
	emptySet := make(map[string]bool, len(empty))
	for _, p := range empty {
		emptySet[p] = true
	}
	for _, source := range stored {
		if listed[source] && !emptySet[source] {
			continue
		}
		if err := i.store.Remove(ctx, source); err != nil {
			return stats, fmt.Errorf("remove %s: %w", source, err)
		}
		stats.Removed++
	}

	metrics.IndexedChunks.Set(float64(stats.Chunks))
	i.logger.Info("indexed vault",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("unchanged", stats.Unchanged),
		zap.Int("removed", stats.Removed))
	return stats, nil
}

// IndexDocument re-indexes one document and returns the number of chunks stored.
func (i *Indexer) IndexDocument(ctx context.Context, path string) (int, error) {
	doc, ok, err := i.vault.Read(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	var chunks []domain.Chunk
	if ok {
		chunks = i.chunker.Chunk(path, doc.Content)
	}
	if len(chunks) == 0 {
		if err := i.store.Remove(ctx, path); err != nil {
			return 0, fmt.Errorf("remove %s: %w", path, err)
		}
		i.logger.Debug("removed document without chunks", zap.String("source", path))
		return 0, nil
	}

	if !i.CanEmbed() {
		return 0, domain.ErrEmbeddingUnavailable
	}

	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}
	vectors, err := i.embedder.Embed(ctx, texts, domain.EmbedModeDocument)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", path, err)
	}
	if err := i.store.Replace(ctx, path, chunks, vectors); err != nil {
		return 0, fmt.Errorf("store %s: %w", path, err)
	}

	i.logger.Info("indexed document", zap.String("source", path), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

var labelPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Remember appends content under a timestamped heading to manual/<label>.md
// and re-indexes that document. The document is written even when it cannot
// be indexed; the returned error then wraps domain.ErrEmbeddingUnavailable.
func (i *Indexer) Remember(ctx context.Context, label, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: memory content is required", domain.ErrInvalidInput)
	}

	slug := strings.Trim(labelPattern.ReplaceAllString(strings.ToLower(label), "-"), "-")
	if slug == "" {
		slug = "notes"
	}
	path := ManualMemoryDir + "/" + slug + ".md"

	header := "# " + strings.TrimSpace(label) + "\n"
	if strings.TrimSpace(label) == "" {
		header = "# Notes\n"
	}
	entry := "\n## " + i.now().UTC().Format(time.RFC3339) + "\n\n" + content + "\n"
	if err := i.vault.Append(ctx, path, header, entry); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	if _, err := i.IndexDocument(ctx, path); err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			i.logger.Warn("saved memory without indexing", zap.String("source", path))
		}
		return path, err
	}
	return path, nil
}
