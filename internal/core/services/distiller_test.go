package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var distillNow = time.Date(2026, 2, 12, 14, 5, 9, 0, time.UTC)

type distillFixture struct {
	turns *mockTurnStore
	agent *mockAgent
	vault *mockVault
	store *mockVectorStore
	p     *mockProvider
	d     *Distiller
	logs  *observer.ObservedLogs
}

func newDistillFixture(t *testing.T, withEmbedder bool) *distillFixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &distillFixture{
		turns: &mockTurnStore{},
		agent: &mockAgent{reply: "Planned a trip.\n\n- Flight to Lisbon on 3 March"},
		vault: newMockVault(nil),
		store: newMockVectorStore(),
		logs:  logs,
	}
	var e *Embedder
	if withEmbedder {
		f.p = &mockProvider{}
		e = newTestEmbedder(f.p)
	}
	idx := NewIndexer(f.vault, lineChunker{}, e, f.store, nil)
	f.d = NewDistiller(f.turns, f.agent, f.vault, idx,
		domain.DistillConfig{Threshold: 20, Timezone: "UTC"},
		zap.New(core),
		WithDistillClock(func() time.Time { return distillNow }))
	return f
}

func TestDistiller_BelowThresholdMakesNoAgentCall(t *testing.T) {
	f := newDistillFixture(t, true)
	start := distillNow.Add(-2 * time.Hour)
	f.turns.addTurns("chat-1", 19, start)

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 0, f.agent.callCount())
	assert.Equal(t, 19, out.Pending)
	assert.False(t, out.Distilled)
	assert.True(t, out.Checkpoint.IsZero())
}

func TestDistiller_AtThresholdMakesExactlyOneAgentCall(t *testing.T) {
	f := newDistillFixture(t, true)
	start := distillNow.Add(-2 * time.Hour)
	f.turns.addTurns("chat-1", 20, start)

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 1, f.agent.callCount())
	assert.True(t, out.Distilled)
	assert.True(t, out.Indexed)
	assert.Equal(t, "memories/2026-02-12.md", out.Document)
	assert.Equal(t, start.Add(19*time.Minute), out.Checkpoint)
	assert.Positive(t, out.Chunks)
	assert.NotEmpty(t, f.store.chunks(out.Document))
}

func TestDistiller_WritesDailyDocument(t *testing.T) {
	f := newDistillFixture(t, true)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	_, err := f.d.Check(context.Background(), "chat-1", time.Time{})
	require.NoError(t, err)

	content, ok := f.vault.content("memories/2026-02-12.md")
	require.True(t, ok)
	assert.Equal(t,
		"# Memories — 2026-02-12\n\n## 14:05:09\n\nPlanned a trip.\n\n- Flight to Lisbon on 3 March\n",
		content)
}

func TestDistiller_SecondSectionAppends(t *testing.T) {
	f := newDistillFixture(t, true)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-3*time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})
	require.NoError(t, err)

	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))
	out2, err := f.d.Check(context.Background(), "chat-1", out.Checkpoint)
	require.NoError(t, err)
	assert.Equal(t, 20, out2.Pending)

	content, _ := f.vault.content("memories/2026-02-12.md")
	assert.Equal(t, 1, strings.Count(content, "# Memories"))
	assert.Equal(t, 2, strings.Count(content, "## 14:05:09"))
}

func TestDistiller_PromptContainsTranscript(t *testing.T) {
	f := newDistillFixture(t, true)
	start := time.Date(2026, 2, 12, 8, 0, 0, 0, time.UTC)
	f.turns.addTurns("chat-1", 20, start)

	_, err := f.d.Check(context.Background(), "chat-1", time.Time{})
	require.NoError(t, err)

	prompt := f.agent.prompts[0]
	assert.Contains(t, prompt, "Keep it under 500 words.")
	assert.Contains(t, prompt, "[2026-02-12T08:00:00Z] user: message a\n\n[2026-02-12T08:01:00Z] assistant: message b")
}

func TestDistiller_OnlyCountsTurnsAfterCheckpoint(t *testing.T) {
	f := newDistillFixture(t, true)
	start := distillNow.Add(-time.Hour)
	f.turns.addTurns("chat-1", 30, start)

	out, err := f.d.Check(context.Background(), "chat-1", start.Add(10*time.Minute))

	require.NoError(t, err)
	assert.Equal(t, 19, out.Pending)
	assert.Equal(t, 0, f.agent.callCount())
}

func TestDistiller_ScopesAreIndependent(t *testing.T) {
	f := newDistillFixture(t, true)
	f.turns.addTurns("chat-1", 15, distillNow.Add(-time.Hour))
	f.turns.addTurns("chat-2", 15, distillNow.Add(-time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.Equal(t, 15, out.Pending)
	assert.Equal(t, 0, f.agent.callCount())
}

func TestDistiller_EmptyDistillateWritesNothing(t *testing.T) {
	f := newDistillFixture(t, true)
	f.agent.reply = "  \n\t "
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.False(t, out.Distilled)
	assert.True(t, out.Checkpoint.IsZero())
	_, ok := f.vault.content("memories/2026-02-12.md")
	assert.False(t, ok)
}

func TestDistiller_AgentFailureKeepsCheckpoint(t *testing.T) {
	f := newDistillFixture(t, true)
	f.agent.err = errBoom
	cp := distillNow.Add(-5 * time.Hour)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", cp)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, cp, out.Checkpoint)
	assert.False(t, out.Distilled)
}

func TestDistiller_WriteFailureKeepsCheckpoint(t *testing.T) {
	f := newDistillFixture(t, true)
	f.vault.appendErr = errBoom
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	assert.ErrorIs(t, err, errBoom)
	assert.True(t, out.Checkpoint.IsZero())
}

func TestDistiller_IndexFailureAdvancesCheckpoint(t *testing.T) {
	f := newDistillFixture(t, true)
	f.p.err = errBoom
	start := distillNow.Add(-time.Hour)
	f.turns.addTurns("chat-1", 20, start)

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	assert.ErrorIs(t, err, errBoom)
	assert.True(t, out.Distilled)
	assert.False(t, out.Indexed)
	assert.Equal(t, start.Add(19*time.Minute), out.Checkpoint)
}

func TestDistiller_NoEmbedderWritesAndWarns(t *testing.T) {
	f := newDistillFixture(t, false)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.True(t, out.Distilled)
	assert.False(t, out.Indexed)
	_, ok := f.vault.content(out.Document)
	assert.True(t, ok)
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessageSnippet("skipping memory indexing").Len())
}

func TestDistiller_NoAgent(t *testing.T) {
	turns := &mockTurnStore{}
	turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))
	d := NewDistiller(turns, nil, newMockVault(nil), nil, domain.DistillConfig{Threshold: 20}, nil)

	_, err := d.Check(context.Background(), "chat-1", time.Time{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestDistiller_SingleFlightPerScope(t *testing.T) {
	f := newDistillFixture(t, true)
	f.agent.block = make(chan struct{})
	f.agent.entered = make(chan struct{}, 1)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.d.Check(context.Background(), "chat-1", time.Time{})
	}()
	<-f.agent.entered

	out, err := f.d.Check(context.Background(), "chat-1", time.Time{})
	assert.ErrorIs(t, err, domain.ErrDistillationInProgress)
	assert.False(t, out.Distilled)

	close(f.agent.block)
	wg.Wait()
	assert.Equal(t, 1, f.agent.callCount())
}

type stubPrompts struct{ tpl string }

func (s stubPrompts) Load(string) (string, error) { return s.tpl, nil }
func (s stubPrompts) Reload() {}

func TestDistiller_CustomPrompt(t *testing.T) {
	f := newDistillFixture(t, true)
	WithDistillPrompts(stubPrompts{tpl: "SUMMARISE:\n%s"})(f.d)
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))

	_, err := f.d.Check(context.Background(), "chat-1", time.Time{})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.agent.prompts[0], "SUMMARISE:\n["))
}

func TestCheckpointTracker_SeedsFromStore(t *testing.T) {
	f := newDistillFixture(t, true)
	seed := distillNow.Add(-30 * time.Minute)
	f.store.now = func() time.Time { return seed }
	require.NoError(t, f.store.Replace(context.Background(), "memories/2026-02-11.md",
		[]domain.Chunk{{SourceDocument: "memories/2026-02-11.md", Content: "old"}}, [][]float32{{1}}))

	tracker := NewCheckpointTracker(f.d, f.turns, f.store, newMockCheckpointStore(), nil)
	cp, err := tracker.Checkpoint(context.Background(), "chat-1")

	require.NoError(t, err)
	assert.Equal(t, seed, cp)
}

func TestCheckpointTracker_ReindexAfterRestartKeepsPendingTurns(t *testing.T) {
	f := newDistillFixture(t, true)
	ctx := context.Background()
	t0 := distillNow.Add(-3 * time.Hour)
	t1 := t0.Add(45 * time.Minute)
	idx := NewIndexer(f.vault, lineChunker{}, newTestEmbedder(f.p), f.store, nil)

	f.vault.write("memories/2026-02-11.md", "Booked the dentist", t0)
	f.store.now = func() time.Time { return t0 }
	_, err := idx.IndexVault(ctx)
	require.NoError(t, err)

	f.turns.addTurns("chat-1", 19, t0.Add(time.Minute))

	// Startup re-index with every document considered modified.
	f.vault.write("memories/2026-02-11.md", "Booked the dentist", t1)
	f.store.now = func() time.Time { return t1 }
	_, err = idx.RebuildVault(ctx)
	require.NoError(t, err)

	f.turns.addTurns("chat-1", 1, t1.Add(time.Minute))

	tracker := NewCheckpointTracker(f.d, f.turns, f.store, newMockCheckpointStore(), nil)
	out, err := tracker.Run(ctx, "chat-1")

	require.NoError(t, err)
	assert.Equal(t, 20, out.Pending)
	assert.True(t, out.Distilled)
	assert.Equal(t, 1, f.agent.callCount())
}

func TestCheckpointTracker_CheckpointSurvivesRestart(t *testing.T) {
	f := newDistillFixture(t, true)
	ctx := context.Background()
	start := distillNow.Add(-time.Hour)
	f.turns.addTurns("chat-1", 20, start)
	cps := newMockCheckpointStore()

	out, err := NewCheckpointTracker(f.d, f.turns, f.store, cps, nil).Run(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, out.Distilled)

	restarted := NewCheckpointTracker(f.d, f.turns, f.store, cps, nil)
	cp, err := restarted.Checkpoint(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, start.Add(19*time.Minute), cp)

	out, err = restarted.Run(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, 0, out.Pending)
	assert.Equal(t, 1, f.agent.callCount())
}

func TestCheckpointTracker_ScopeHeldUntilCheckpointSaved(t *testing.T) {
	f := newDistillFixture(t, true)
	ctx := context.Background()
	f.turns.addTurns("chat-1", 20, distillNow.Add(-time.Hour))
	cps := newMockCheckpointStore()
	cps.block = make(chan struct{})
	cps.entered = make(chan struct{})
	tracker := NewCheckpointTracker(f.d, f.turns, f.store, cps, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := tracker.Run(ctx, "chat-1")
		assert.NoError(t, err)
	}()
	<-cps.entered

	// The distiller is done but the checkpoint is not yet stored.
	_, err := tracker.Run(ctx, "chat-1")
	assert.ErrorIs(t, err, domain.ErrDistillationInProgress)

	close(cps.block)
	wg.Wait()
	assert.Equal(t, 1, f.agent.callCount())
	assert.Equal(t, 1, cps.saves)
}

func TestCheckpointTracker_RunAll(t *testing.T) {
	f := newDistillFixture(t, true)
	start := distillNow.Add(-time.Hour)
	f.turns.addTurns("chat-1", 20, start)
	f.turns.addTurns("chat-2", 3, start)
	tracker := NewCheckpointTracker(f.d, f.turns, f.store, newMockCheckpointStore(), nil)

	n, err := tracker.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cp, err := tracker.Checkpoint(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, start.Add(19*time.Minute), cp)

	// A second pass finds nothing new.
	n, err = tracker.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, f.agent.callCount())
}
