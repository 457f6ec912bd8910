package sqlite

import (
	"container/heap"
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/viant/vec/search"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/metrics"
)

const backendName = "sqlite"

// vectorStore implements driven.VectorStore over memory_chunks and memory_vec.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Replace swaps every chunk of source in a single transaction.
func (s *vectorStore) Replace(
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

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	created, err := creationTimes(ctx, tx, source)
	if err != nil {
		return err
	}
	if err = deleteSource(ctx, tx, source); err != nil {
		return err
	}

	now := formatTime(s.store.now())
	for i, chunk := range chunks {
		id := uuid.New().String()
		createdAt, ok := created[chunk.Content]
		if !ok {
			createdAt = now
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO memory_chunks (id, source_document, chunk_index, content, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, source, chunk.Index, chunk.Content, createdAt, now); err != nil {
			return fmt.Errorf("inserting chunk %d of %s: %w", i, source, err)
		}
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO memory_vec (id, embedding) VALUES (?, ?)",
			id, float32SliceToBytes(embeddings[i])); err != nil {
			return fmt.Errorf("inserting embedding %d of %s: %w", i, source, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing replace of %s: %w", source, err)
	}
	return nil
}

// Remove drops every chunk of source.
func (s *vectorStore) Remove(ctx context.Context, source string) (err error) {
	defer observe("remove", time.Now(), &err)

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting remove: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err = deleteSource(ctx, tx, source); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing remove of %s: %w", source, err)
	}
	return nil
}

// NearestNeighbors scans every stored vector and keeps the k closest.
// Rows whose dimension differs from the query are skipped.
func (s *vectorStore) NearestNeighbors(
	ctx context.Context,
	query []float32,
	k int,
) (_ []domain.Neighbor, err error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}

	defer observe("query", time.Now(), &err)

	queryVec := search.Float32s(query)
	queryMag := queryVec.Magnitude()
	if queryMag == 0 {
		return []domain.Neighbor{}, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.source_document, c.chunk_index, c.content, v.embedding
		FROM memory_vec v
		JOIN memory_chunks c ON c.id = v.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	top := &neighborHeap{}
	for rows.Next() {
		var n domain.Neighbor
		var blob []byte
		if err = rows.Scan(&n.Chunk.SourceDocument, &n.Chunk.Index, &n.Chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}

		vec := bytesToFloat32Slice(blob)
		if len(vec) != len(query) {
			continue
		}
		mag := search.Float32s(vec).Magnitude()
		if mag == 0 {
			continue
		}
		n.Distance = float64(cosineDistanceWithMagnitude(queryVec, vec, queryMag, mag))
		if n.Distance < 0 {
			n.Distance = 0
		}

		if top.Len() < k {
			heap.Push(top, n)
		} else if closer(n, (*top)[0]) {
			(*top)[0] = n
			heap.Fix(top, 0)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	result := make([]domain.Neighbor, top.Len())
	copy(result, *top)
	sort.Slice(result, func(i, j int) bool { return closer(result[i], result[j]) })
	return result, nil
}

// Sources lists every source document with at least one stored chunk.
func (s *vectorStore) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT DISTINCT source_document FROM memory_chunks ORDER BY source_document")
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return sources, nil
}

// SourceUpdates returns the last replace time of every stored source.
func (s *vectorStore) SourceUpdates(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT source_document, MAX(updated_at) FROM memory_chunks GROUP BY source_document")
	if err != nil {
		return nil, fmt.Errorf("querying source updates: %w", err)
	}
	defer rows.Close()

	updates := make(map[string]time.Time)
	for rows.Next() {
		var source, updatedAt string
		if err := rows.Scan(&source, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning source update: %w", err)
		}
		updates[source] = parseTime(updatedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source updates: %w", err)
	}
	return updates, nil
}

// LatestCreated returns the newest created_at among chunks under prefix.
func (s *vectorStore) LatestCreated(ctx context.Context, prefix string) (time.Time, error) {
	var latest sql.NullString
	err := s.store.db.QueryRowContext(ctx, `
		SELECT MAX(created_at) FROM memory_chunks
		WHERE source_document LIKE ? ESCAPE '\'
	`, escapeLike(prefix)+"%").Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("querying latest creation: %w", err)
	}
	return parseNullableTime(latest), nil
}

// creationTimes maps the content of each stored chunk of source to its created_at.
func creationTimes(ctx context.Context, tx *sql.Tx, source string) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT content, created_at FROM memory_chunks WHERE source_document = ?", source)
	if err != nil {
		return nil, fmt.Errorf("loading chunks of %s: %w", source, err)
	}
	defer rows.Close()

	created := make(map[string]string)
	for rows.Next() {
		var content, createdAt string
		if err := rows.Scan(&content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning chunk of %s: %w", source, err)
		}
		created[content] = createdAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks of %s: %w", source, err)
	}
	return created, nil
}

func deleteSource(ctx context.Context, tx *sql.Tx, source string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM memory_vec
		WHERE id IN (SELECT id FROM memory_chunks WHERE source_document = ?)
	`, source); err != nil {
		return fmt.Errorf("deleting embeddings of %s: %w", source, err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM memory_chunks WHERE source_document = ?", source); err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", source, err)
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	metrics.StoreDuration.WithLabelValues(backendName, op).Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues(backendName, op, metrics.Result(*err)).Inc()
}

// closer orders neighbours by distance, then by source and position.
func closer(a, b domain.Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Chunk.SourceDocument != b.Chunk.SourceDocument {
		return a.Chunk.SourceDocument < b.Chunk.SourceDocument
	}
	return a.Chunk.Index < b.Chunk.Index
}

// neighborHeap is a max-heap on distance; the root is the worst kept neighbour.
type neighborHeap []domain.Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(domain.Neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
