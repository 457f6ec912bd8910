package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// --- Embedding ---

const mockDims = 512

// mockProvider embeds text as a normalised bag of lower-cased words, so texts
// sharing words are close in cosine distance.
type mockProvider struct {
	mu      sync.Mutex
	calls   [][]string
	modes   []domain.EmbedMode
	err     error
	short   bool // return one vector fewer than asked
	callAt  []time.Time
	embedFn func(string) []float32
	dims    int
}

func (m *mockProvider) EmbedBatch(_ context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	m.modes = append(m.modes, mode)
	m.callAt = append(m.callAt, time.Now())
	if m.err != nil {
		return nil, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		if m.embedFn != nil {
			out[i] = m.embedFn(texts[i])
		} else {
			out[i] = bagOfWords(texts[i])
		}
	}
	return out, nil
}

func (m *mockProvider) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return mockDims
}
func (m *mockProvider) ModelName() string { return "mock" }
func (m *mockProvider) Ping(_ context.Context) error { return nil }
func (m *mockProvider) Close() error { return nil }

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// vocabulary gives every distinct word its own dimension, so unrelated texts
// are orthogonal unless they share a word.
var vocabulary = struct {
	sync.Mutex
	index map[string]int
}{index: make(map[string]int)}

func wordDim(w string) int {
	vocabulary.Lock()
	defer vocabulary.Unlock()
	i, ok := vocabulary.index[w]
	if !ok {
		i = len(vocabulary.index) % mockDims
		vocabulary.index[w] = i
	}
	return i
}

func bagOfWords(text string) []float32 {
	v := make([]float32, mockDims)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) {
		v[wordDim(w)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= float32(math.Sqrt(norm))
	}
	return v
}

func newTestEmbedder(p driven.EmbeddingProvider) *Embedder {
	return NewEmbedder(p, domain.EmbeddingConfig{BatchSize: domain.MaxEmbedBatchSize}, nil)
}

// --- Vector store ---

type storedChunk struct {
	chunk     domain.Chunk
	embedding []float32
	created   time.Time
	updated   time.Time
}

type mockVectorStore struct {
	mu         sync.Mutex
	rows       map[string][]storedChunk
	replaceErr error
	now        func() time.Time
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{rows: make(map[string][]storedChunk), now: time.Now}
}

func (m *mockVectorStore) Replace(_ context.Context, source string, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return domain.ErrCountMismatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	created := make(map[string]time.Time)
	for _, r := range m.rows[source] {
		created[r.chunk.Content] = r.created
	}
	now := m.now()
	rows := make([]storedChunk, len(chunks))
	for i := range chunks {
		at, ok := created[chunks[i].Content]
		if !ok {
			at = now
		}
		rows[i] = storedChunk{chunk: chunks[i], embedding: embeddings[i], created: at, updated: now}
	}
	m.rows[source] = rows
	return nil
}

func (m *mockVectorStore) Remove(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, source)
	return nil
}

func (m *mockVectorStore) NearestNeighbors(_ context.Context, query []float32, k int) ([]domain.Neighbor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Neighbor
	for _, rows := range m.rows {
		for _, r := range rows {
			out = append(out, domain.Neighbor{Chunk: r.chunk, Distance: cosineDistance(query, r.embedding)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *mockVectorStore) Sources(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.rows))
	for s := range m.rows {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockVectorStore) SourceUpdates(_ context.Context) (map[string]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]time.Time, len(m.rows))
	for s, rows := range m.rows {
		for _, r := range rows {
			if r.updated.After(out[s]) {
				out[s] = r.updated
			}
		}
	}
	return out, nil
}

func (m *mockVectorStore) LatestCreated(_ context.Context, prefix string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest time.Time
	for s, rows := range m.rows {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		for _, r := range rows {
			if r.created.After(latest) {
				latest = r.created
			}
		}
	}
	return latest, nil
}

func (m *mockVectorStore) chunks(source string) []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, r := range m.rows[source] {
		out = append(out, r.chunk)
	}
	return out
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// --- Vault ---

type mockVault struct {
	mu        sync.Mutex
	files     map[string]string
	mtimes    map[string]time.Time
	appendErr error
	readErr   error
}

func newMockVault(files map[string]string) *mockVault {
	if files == nil {
		files = make(map[string]string)
	}
	return &mockVault{files: files, mtimes: make(map[string]time.Time)}
}

// write replaces the content of path and stamps its modification time.
func (m *mockVault) write(path, content string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	m.mtimes[path] = at
}

func (m *mockVault) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockVault) Read(_ context.Context, path string) (domain.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return domain.Document{}, false, m.readErr
	}
	content, ok := m.files[path]
	if !ok {
		return domain.Document{}, false, nil
	}
	return domain.Document{Path: path, Content: content, ModTime: m.mtimes[path]}, true, nil
}

func (m *mockVault) Append(_ context.Context, path, header, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	existing, ok := m.files[path]
	if !ok {
		existing = header
	}
	m.files[path] = existing + text
	return nil
}

func (m *mockVault) content(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[path]
	return c, ok
}

// --- Chunker ---

// lineChunker emits one chunk per non-empty line.
type lineChunker struct{}

func (lineChunker) Name() string { return "line" }

func (lineChunker) Chunk(source, content string) []domain.Chunk {
	var out []domain.Chunk
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, domain.Chunk{SourceDocument: source, Index: len(out), Content: line})
	}
	return out
}

// --- Turns ---

type mockTurnStore struct {
	mu    sync.Mutex
	turns []domain.ConversationTurn
	err   error
}

func (m *mockTurnStore) Append(_ context.Context, t domain.ConversationTurn) (domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.ConversationTurn{}, m.err
	}
	t.ID = int64(len(m.turns) + 1)
	m.turns = append(m.turns, t)
	return t, nil
}

func (m *mockTurnStore) Since(_ context.Context, scope string, since time.Time) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ConversationTurn
	for _, t := range m.turns {
		if t.Scope == scope && t.Timestamp.After(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTurnStore) Recent(_ context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConversationTurn
	for _, t := range m.turns {
		if t.Scope == scope {
			out = append(out, t)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func (m *mockTurnStore) Scopes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range m.turns {
		if !seen[t.Scope] {
			seen[t.Scope] = true
			out = append(out, t.Scope)
		}
	}
	return out, nil
}

// addTurns appends n turns to scope, one minute apart starting at start.
func (m *mockTurnStore) addTurns(scope string, n int, start time.Time) {
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		_, _ = m.Append(context.Background(), domain.ConversationTurn{
			Scope:     scope,
			Role:      role,
			Content:   "message " + string(rune('a'+i%26)),
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		})
	}
}

// --- Checkpoints ---

type mockCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]time.Time
	saves       int
	block       chan struct{}
	entered     chan struct{}
}

func newMockCheckpointStore() *mockCheckpointStore {
	return &mockCheckpointStore{checkpoints: make(map[string]time.Time)}
}

func (m *mockCheckpointStore) Checkpoint(_ context.Context, scope string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.checkpoints[scope]
	return cp, ok, nil
}

func (m *mockCheckpointStore) SaveCheckpoint(_ context.Context, scope string, checkpoint time.Time) error {
	m.mu.Lock()
	block, entered := m.block, m.entered
	m.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints[scope] = checkpoint
	m.saves++
	return nil
}

// --- Agent ---

type mockAgent struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	block   chan struct{}
	entered chan struct{}
}

func (m *mockAgent) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	block, entered := m.block, m.entered
	m.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return m.reply, m.err
}

func (m *mockAgent) ModelName() string { return "mock-agent" }
func (m *mockAgent) Ping(_ context.Context) error { return nil }
func (m *mockAgent) Close() error { return nil }

func (m *mockAgent) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// --- Heartbeat log ---

type heartbeatEntry struct {
	hash      string
	content   string
	delivered bool
	at        time.Time
}

type mockHeartbeatLog struct {
	mu      sync.Mutex
	entries []heartbeatEntry
	now     func() time.Time
}

func newMockHeartbeatLog(now func() time.Time) *mockHeartbeatLog {
	return &mockHeartbeatLog{now: now}
}

func (m *mockHeartbeatLog) IsDuplicate(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-domain.HeartbeatDedupWindow)
	for _, e := range m.entries {
		if e.hash == hash && e.at.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockHeartbeatLog) Record(_ context.Context, hash, content string, delivered bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, heartbeatEntry{hash: hash, content: content, delivered: delivered, at: m.now()})
	return nil
}

// --- Notifier ---

type mockNotifier struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (m *mockNotifier) Deliver(_ context.Context, _ string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.delivered = append(m.delivered, text)
	return nil
}

// --- Scheduler store ---

type mockSchedulerStore struct {
	mu      sync.Mutex
	tasks   map[string]domain.ScheduledTask
	results []domain.TaskResult
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{tasks: make(map[string]domain.ScheduledTask)}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, id string) (*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, t *domain.ScheduledTask) error {
	if t == nil {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = *t
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, r *domain.TaskResult) error {
	if r == nil {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *r)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, id string, limit int) ([]domain.TaskResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TaskResult
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		if m.results[i].TaskID == id {
			out = append(out, m.results[i])
		}
	}
	return out, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error { return nil }

var errBoom = errors.New("boom")

// compile-time checks
var (
	_ driven.EmbeddingProvider = (*mockProvider)(nil)
	_ driven.VectorStore       = (*mockVectorStore)(nil)
	_ driven.Vault             = (*mockVault)(nil)
	_ driven.Chunker           = lineChunker{}
	_ driven.TurnStore         = (*mockTurnStore)(nil)
	_ driven.CheckpointStore   = (*mockCheckpointStore)(nil)
	_ driven.AgentService      = (*mockAgent)(nil)
	_ driven.HeartbeatLog      = (*mockHeartbeatLog)(nil)
	_ driven.Notifier          = (*mockNotifier)(nil)
	_ driven.SchedulerStore    = (*mockSchedulerStore)(nil)
)
