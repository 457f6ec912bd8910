package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/metrics"
)

const (
	backendName = "memory"

	metaSource = "source"
	metaIndex  = "index"
)

// errNoEmbeddingFunc is returned if chromem ever tries to embed text itself.
var errNoEmbeddingFunc = errors.New("memory vector store only accepts precomputed embeddings")

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore backed by chromem-go.
// Vectors are kept in one collection per dimension so that a query only ever
// compares against vectors of its own length.
type VectorStore struct {
	mu          sync.RWMutex
	db          *chromem.DB
	collections map[int]*chromem.Collection
	sources     map[string]storedSource
	now         func() time.Time
	nextID      uint64
}

// storedSource mirrors what chromem holds for one source so that a failed
// replace can be rolled back.
type storedSource struct {
	docs      []chromem.Document
	createdAt []time.Time
	updatedAt time.Time
}

// VectorStoreOption configures a VectorStore.
type VectorStoreOption func(*VectorStore)

// WithVectorClock overrides the clock used for update timestamps.
func WithVectorClock(now func() time.Time) VectorStoreOption {
	return func(s *VectorStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore(opts ...VectorStoreOption) *VectorStore {
	s := &VectorStore{
		db:          chromem.NewDB(),
		collections: make(map[int]*chromem.Collection),
		sources:     make(map[string]storedSource),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace swaps every chunk of source. On failure the previous chunks are restored.
func (s *VectorStore) Replace(
	ctx context.Context,
	source string,
	chunks []domain.Chunk,
	embeddings [][]float32,
) (err error) {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrCountMismatch, len(chunks), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return fmt.Errorf("%w: empty embedding for chunk %d", domain.ErrInvalidInput, i)
		}
	}

	defer observe("replace", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		s.nextID++
		docs[i] = chromem.Document{
			ID:      strconv.FormatUint(s.nextID, 10),
			Content: chunk.Content,
			Metadata: map[string]string{
				metaSource: source,
				metaIndex:  strconv.Itoa(chunk.Index),
			},
			Embedding: append([]float32(nil), embeddings[i]...),
		}
	}

	previous, existed := s.sources[source]
	now := s.now().UTC()
	created := make(map[string]time.Time, len(previous.docs))
	for i, doc := range previous.docs {
		created[doc.Content] = previous.createdAt[i]
	}
	createdAt := make([]time.Time, len(docs))
	for i, doc := range docs {
		if at, ok := created[doc.Content]; ok {
			createdAt[i] = at
		} else {
			createdAt[i] = now
		}
	}

	if err = s.deleteLocked(ctx, source); err != nil {
		return err
	}
	if err = s.addLocked(ctx, docs); err != nil {
		// Restore what was there before.
		if cleanupErr := s.deleteLocked(ctx, source); cleanupErr != nil {
			return errors.Join(err, cleanupErr)
		}
		if existed {
			if restoreErr := s.addLocked(ctx, previous.docs); restoreErr != nil {
				return errors.Join(err, restoreErr)
			}
			s.sources[source] = previous
		}
		return err
	}

	if len(docs) == 0 {
		delete(s.sources, source)
		return nil
	}
	s.sources[source] = storedSource{docs: docs, createdAt: createdAt, updatedAt: now}
	return nil
}

// Remove drops every chunk of source.
func (s *VectorStore) Remove(ctx context.Context, source string) (err error) {
	defer observe("remove", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.deleteLocked(ctx, source); err != nil {
		return err
	}
	delete(s.sources, source)
	return nil
}

// NearestNeighbors returns up to k chunks ordered by ascending cosine distance.
func (s *VectorStore) NearestNeighbors(
	ctx context.Context,
	query []float32,
	k int,
) (_ []domain.Neighbor, err error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if k <= 0 || isZero(query) {
		return []domain.Neighbor{}, nil
	}

	defer observe("query", time.Now(), &err)

	s.mu.RLock()
	defer s.mu.RUnlock()

	collection, ok := s.collections[len(query)]
	if !ok || collection.Count() == 0 {
		return []domain.Neighbor{}, nil
	}
	// chromem requires nResults <= document count.
	if count := collection.Count(); k > count {
		k = count
	}

	results, err := collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem collection: %w", err)
	}

	neighbors := make([]domain.Neighbor, 0, len(results))
	for _, r := range results {
		index, _ := strconv.Atoi(r.Metadata[metaIndex])
		distance := 1 - float64(r.Similarity)
		if distance < 0 {
			distance = 0
		}
		neighbors = append(neighbors, domain.Neighbor{
			Chunk: domain.Chunk{
				SourceDocument: r.Metadata[metaSource],
				Index:          index,
				Content:        r.Content,
			},
			Distance: distance,
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		a, b := neighbors[i], neighbors[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Chunk.SourceDocument != b.Chunk.SourceDocument {
			return a.Chunk.SourceDocument < b.Chunk.SourceDocument
		}
		return a.Chunk.Index < b.Chunk.Index
	})
	return neighbors, nil
}

// Sources lists every source document with at least one stored chunk.
func (s *VectorStore) Sources(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]string, 0, len(s.sources))
	for source := range s.sources {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources, nil
}

// SourceUpdates returns the last replace time of every stored source.
func (s *VectorStore) SourceUpdates(_ context.Context) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	updates := make(map[string]time.Time, len(s.sources))
	for source, stored := range s.sources {
		updates[source] = stored.updatedAt
	}
	return updates, nil
}

// LatestCreated returns the newest chunk creation time among sources under prefix.
func (s *VectorStore) LatestCreated(_ context.Context, prefix string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for source, stored := range s.sources {
		if !strings.HasPrefix(source, prefix) {
			continue
		}
		for _, at := range stored.createdAt {
			if at.After(latest) {
				latest = at
			}
		}
	}
	return latest, nil
}

// Count returns the number of stored chunks.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, stored := range s.sources {
		n += len(stored.docs)
	}
	return n
}

func (s *VectorStore) deleteLocked(ctx context.Context, source string) error {
	stored, ok := s.sources[source]
	if !ok {
		return nil
	}
	byDim := make(map[int][]string)
	for _, doc := range stored.docs {
		byDim[len(doc.Embedding)] = append(byDim[len(doc.Embedding)], doc.ID)
	}
	for dim, ids := range byDim {
		collection, ok := s.collections[dim]
		if !ok {
			continue
		}
		if err := collection.Delete(ctx, nil, nil, ids...); err != nil {
			return fmt.Errorf("deleting chunks of %s: %w", source, err)
		}
	}
	return nil
}

func (s *VectorStore) addLocked(ctx context.Context, docs []chromem.Document) error {
	byDim := make(map[int][]chromem.Document)
	for _, doc := range docs {
		// Zero vectors cannot be normalised; they are never returned by a query.
		if isZero(doc.Embedding) {
			continue
		}
		byDim[len(doc.Embedding)] = append(byDim[len(doc.Embedding)], doc)
	}
	for dim, group := range byDim {
		collection, err := s.collection(dim)
		if err != nil {
			return err
		}
		if err := collection.AddDocuments(ctx, group, 1); err != nil {
			return fmt.Errorf("adding documents: %w", err)
		}
	}
	return nil
}

func (s *VectorStore) collection(dim int) (*chromem.Collection, error) {
	if c, ok := s.collections[dim]; ok {
		return c, nil
	}
	c, err := s.db.GetOrCreateCollection("chunks-"+strconv.Itoa(dim), nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection for dimension %d: %w", dim, err)
	}
	s.collections[dim] = c
	return c, nil
}

func noEmbed(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

func isZero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

func observe(op string, start time.Time, err *error) {
	metrics.StoreDuration.WithLabelValues(backendName, op).Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues(backendName, op, metrics.Result(*err)).Inc()
}
