package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/metrics"
)

// Ensure Distiller implements the interface.
var _ driving.DistillService = (*Distiller)(nil)

// MemoryDir is the vault directory that holds distilled daily memory documents.
const MemoryDir = "memories"

// distillMaxTokens bounds the agent reply; the prompt asks for under 500 words.
const distillMaxTokens = 1024

// Distiller turns pending conversation turns into a dated vault memory section
// once enough of them accumulate. At most one check runs per scope at a time.
type Distiller struct {
	turns     driven.TurnStore
	agent     driven.AgentService
	vault     driven.Vault
	indexer   *Indexer
	prompts   driven.PromptStore
	threshold int
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

// DistillerOption configures a Distiller.
type DistillerOption func(*Distiller)

// WithDistillClock overrides the clock used for section timestamps.
func WithDistillClock(now func() time.Time) DistillerOption {
	return func(d *Distiller) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDistillPrompts sets the prompt store. Without it the built-in prompt is used.
func WithDistillPrompts(prompts driven.PromptStore) DistillerOption {
	return func(d *Distiller) {
		d.prompts = prompts
	}
}

// NewDistiller creates a distiller. agent may be nil, in which case checks that
// reach the threshold fail with domain.ErrLLMUnavailable. indexer may be nil or
// unable to embed; the memory document is then written but not indexed.
func NewDistiller(
	turns driven.TurnStore,
	agent driven.AgentService,
	vault driven.Vault,
	indexer *Indexer,
	cfg domain.DistillConfig,
	log *zap.Logger,
	opts ...DistillerOption,
) *Distiller {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = domain.DefaultDistillThreshold
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.UTC
	}

	d := &Distiller{
		turns:     turns,
		agent:     agent,
		vault:     vault,
		indexer:   indexer,
		threshold: threshold,
		location:  loc,
		logger:    logger.OrNop(log),
		now:       time.Now,
		inFlight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check distils the turns of scope strictly newer than checkpoint when at least
// threshold are pending. The returned outcome always carries the checkpoint to
// use next time: unchanged unless a section was written, in which case it is
// the timestamp of the newest distilled turn.
//
// Writing the section is the commit point. If re-indexing the document fails
// afterwards, the advanced checkpoint is returned together with the error so
// the same turns are not distilled twice.
func (d *Distiller) Check(ctx context.Context, scope string, checkpoint time.Time) (domain.DistillOutcome, error) {
	out := domain.DistillOutcome{Checkpoint: checkpoint}

	if !d.acquire(scope) {
		metrics.DistillChecks.WithLabelValues("busy").Inc()
		return out, domain.ErrDistillationInProgress
	}
	defer d.release(scope)

	turns, err := d.turns.Since(ctx, scope, checkpoint)
	if err != nil {
		metrics.DistillChecks.WithLabelValues("error").Inc()
		return out, fmt.Errorf("load turns: %w", err)
	}
	out.Pending = len(turns)
	if len(turns) < d.threshold {
		metrics.DistillChecks.WithLabelValues("idle").Inc()
		return out, nil
	}
	if d.agent == nil {
		metrics.DistillChecks.WithLabelValues("error").Inc()
		return out, domain.ErrLLMUnavailable
	}

	d.logger.Info("distilling turns", zap.String("scope", scope), zap.Int("turns", len(turns)))

	prompt, err := d.buildPrompt(turns)
	if err != nil {
		metrics.DistillChecks.WithLabelValues("error").Inc()
		return out, err
	}
	reply, err := d.agent.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: distillMaxTokens})
	if err != nil {
		metrics.DistillChecks.WithLabelValues("error").Inc()
		return out, fmt.Errorf("generate distillate: %w", err)
	}
	distillate := strings.TrimSpace(reply)
	if distillate == "" {
		d.logger.Info("empty distillate, skipping", zap.String("scope", scope))
		metrics.DistillChecks.WithLabelValues("empty").Inc()
		return out, nil
	}

	now := d.now().In(d.location)
	date := now.Format("2006-01-02")
	path := MemoryDir + "/" + date + ".md"
	header := "# Memories — " + date + "\n"
	entry := "\n## " + now.Format("15:04:05") + "\n\n" + distillate + "\n"
	if err := d.vault.Append(ctx, path, header, entry); err != nil {
		metrics.DistillChecks.WithLabelValues("error").Inc()
		return out, fmt.Errorf("write %s: %w", path, err)
	}

	out.Checkpoint = turns[len(turns)-1].Timestamp
	out.Distilled = true
	out.Document = path
	metrics.DistillChecks.WithLabelValues("distilled").Inc()
	d.logger.Info("saved distillate", zap.String("scope", scope), zap.String("document", path))

	if d.indexer == nil || !d.indexer.CanEmbed() {
		d.logger.Warn("skipping memory indexing: no embedding service configured",
			zap.String("document", path))
		return out, nil
	}
	n, err := d.indexer.IndexDocument(ctx, path)
	if err != nil {
		return out, fmt.Errorf("index %s: %w", path, err)
	}
	out.Chunks = n
	out.Indexed = true
	return out, nil
}

func (d *Distiller) buildPrompt(turns []domain.ConversationTurn) (string, error) {
	tpl, err := loadPrompt(d.prompts, domain.PromptDistill)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(turns))
	for i, t := range turns {
		lines[i] = fmt.Sprintf("[%s] %s: %s", t.Timestamp.UTC().Format(time.RFC3339), t.Role, t.Content)
	}
	return fmt.Sprintf(tpl, strings.Join(lines, "\n\n")), nil
}

func (d *Distiller) acquire(scope string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[scope] {
		return false
	}
	d.inFlight[scope] = true
	return true
}

func (d *Distiller) release(scope string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, scope)
}

// loadPrompt returns the named template from store, falling back to the
// built-in default when store is nil or fails.
func loadPrompt(store driven.PromptStore, name string) (string, error) {
	if store != nil {
		if tpl, err := store.Load(name); err == nil && strings.TrimSpace(tpl) != "" {
			return tpl, nil
		}
	}
	tpl, ok := domain.DefaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown prompt %q", domain.ErrNotFound, name)
	}
	return tpl, nil
}

// CheckpointTracker holds the distillation checkpoint of every scope and runs
// checks across all scopes. Checkpoints are persisted per scope. A scope with
// no saved checkpoint starts from the creation time of the newest distilled
// memory chunk, which re-indexing the vault does not move.
type CheckpointTracker struct {
	distiller   driving.DistillService
	turns       driven.TurnStore
	store       driven.VectorStore
	checkpoints driven.CheckpointStore
	logger      *zap.Logger

	mu      sync.Mutex
	seed    time.Time
	seeded  bool
	running map[string]bool
}

// NewCheckpointTracker creates a tracker.
func NewCheckpointTracker(
	distiller driving.DistillService,
	turns driven.TurnStore,
	store driven.VectorStore,
	checkpoints driven.CheckpointStore,
	log *zap.Logger,
) *CheckpointTracker {
	return &CheckpointTracker{
		distiller:   distiller,
		turns:       turns,
		store:       store,
		checkpoints: checkpoints,
		logger:      logger.OrNop(log),
		running:     make(map[string]bool),
	}
}

// Checkpoint returns the current checkpoint of scope.
func (t *CheckpointTracker) Checkpoint(ctx context.Context, scope string) (time.Time, error) {
	cp, ok, err := t.checkpoints.Checkpoint(ctx, scope)
	if err != nil {
		return time.Time{}, fmt.Errorf("load checkpoint: %w", err)
	}
	if ok {
		return cp, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seeded {
		seed, err := t.store.LatestCreated(ctx, MemoryDir+"/")
		if err != nil {
			return time.Time{}, fmt.Errorf("seed checkpoint: %w", err)
		}
		t.seed, t.seeded = seed, true
	}
	return t.seed, nil
}

// Run performs one check for scope and saves the returned checkpoint. The
// scope stays claimed until the checkpoint is saved; a concurrent Run for the
// same scope fails with domain.ErrDistillationInProgress.
func (t *CheckpointTracker) Run(ctx context.Context, scope string) (domain.DistillOutcome, error) {
	t.mu.Lock()
	if t.running[scope] {
		t.mu.Unlock()
		return domain.DistillOutcome{}, domain.ErrDistillationInProgress
	}
	t.running[scope] = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.running, scope)
		t.mu.Unlock()
	}()

	cp, err := t.Checkpoint(ctx, scope)
	if err != nil {
		return domain.DistillOutcome{}, err
	}
	out, err := t.distiller.Check(ctx, scope, cp)
	if out.Checkpoint.After(cp) {
		if serr := t.checkpoints.SaveCheckpoint(ctx, scope, out.Checkpoint); serr != nil {
			err = errors.Join(err, fmt.Errorf("save checkpoint: %w", serr))
		}
	}
	return out, err
}

// RunAll checks every scope with stored turns and returns how many were distilled.
// A scope already being distilled is skipped.
func (t *CheckpointTracker) RunAll(ctx context.Context) (int, error) {
	scopes, err := t.turns.Scopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scopes: %w", err)
	}

	var (
		distilled int
		errs      []error
	)
	for _, scope := range scopes {
		out, err := t.Run(ctx, scope)
		switch {
		case errors.Is(err, domain.ErrDistillationInProgress):
			continue
		case err != nil:
			t.logger.Warn("distillation failed", zap.String("scope", scope), zap.Error(err))
			errs = append(errs, fmt.Errorf("scope %s: %w", scope, err))
		}
		if out.Distilled {
			distilled++
		}
	}
	return distilled, errors.Join(errs...)
}
