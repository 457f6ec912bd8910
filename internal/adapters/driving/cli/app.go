package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/adapters/driven/ai"
	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/adapters/driven/notify"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/adapters/driven/vault/filesystem"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/core/services"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/postprocessors/chunker"
)

// DistillRunner runs distillation checks with tracked checkpoints.
type DistillRunner interface {
	// Run performs one check for scope.
	Run(ctx context.Context, scope string) (domain.DistillOutcome, error)

	// RunAll checks every scope and returns how many were distilled.
	RunAll(ctx context.Context) (int, error)
}

// App holds the services wired from one configuration.
// Commands only use the interface fields so tests can substitute them.
type App struct {
	Config domain.Config
	Logger *zap.Logger

	Index         driving.IndexService
	Search        driving.SearchService
	Conversations driving.ConversationService
	Documents     driving.DocumentService
	Distill       DistillRunner
	Heartbeat     driving.HeartbeatService

	// Schedules persists scheduler state. Nil in ephemeral mode.
	Schedules driven.SchedulerStore

	// HeartbeatRecords lists the heartbeat log, newest last.
	HeartbeatRecords func(ctx context.Context) ([]domain.HeartbeatRecord, error)

	// Vault is the concrete vault, needed by the watcher. Nil in tests.
	Vault *filesystem.Vault

	// Warnings are non-fatal problems found while wiring.
	Warnings []string

	closers []func() error
}

// AppOptions controls how NewApp wires adapters.
type AppOptions struct {
	// Ephemeral keeps all state in memory instead of SQLite.
	Ephemeral bool

	// Validate pings the AI services before using them.
	Validate bool

	// Notifications receives heartbeat messages (default: stdout).
	Notifications io.Writer

	Logger *zap.Logger
}

// NewApp wires every adapter and service for cfg. Missing AI credentials
// leave the matching features disabled and are reported as warnings.
func NewApp(cfg domain.Config, opts AppOptions) (*App, error) {
	log := logger.OrNop(opts.Logger)
	a := &App{Config: cfg, Logger: log}

	vault, err := filesystem.New(cfg.VaultPath, cfg.Watch.Exclude)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	a.Vault = vault

	var (
		store        driven.VectorStore
		turns        driven.TurnStore
		heartbeatLog driven.HeartbeatLog
		checkpoints  driven.CheckpointStore
	)
	if opts.Ephemeral {
		store = memory.NewVectorStore()
		turns = memory.NewTurnStore()
		checkpoints = memory.NewCheckpointStore()
		memLog := memory.NewHeartbeatLog(nil)
		heartbeatLog = memLog
		a.HeartbeatRecords = func(context.Context) ([]domain.HeartbeatRecord, error) {
			return memLog.Records(), nil
		}
	} else {
		db, err := sqlite.NewStore(cfg.DataDir, sqlite.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store = db.VectorStore()
		turns = db.TurnStore()
		heartbeatLog = db.HeartbeatLog()
		checkpoints = db.CheckpointStore()
		a.Schedules = db.SchedulerStore()
		a.HeartbeatRecords = db.HeartbeatRecords
	}

	aiResult := ai.Init(&cfg, opts.Validate, log)
	a.closers = append(a.closers, func() error {
		aiResult.Close()
		return nil
	})
	a.Warnings = append(a.Warnings, aiResult.Warnings...)

	prompts, err := file.NewPromptStore(filepath.Join(cfg.DataDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompt store: %w", err)
	}

	out := opts.Notifications
	if out == nil {
		out = os.Stdout
	}

	embedder := services.NewEmbedder(aiResult.Embedding, cfg.Embedding, log)
	indexer := services.NewIndexer(
		vault,
		chunker.New(chunker.WithMaxChars(cfg.Chunking.MaxChars)),
		embedder,
		store,
		log,
	)
	distiller := services.NewDistiller(turns, aiResult.Agent, vault, indexer, cfg.Distill, log,
		services.WithDistillPrompts(prompts))

	a.Index = indexer
	a.Search = services.NewSearchService(embedder, store, cfg.Search.DefaultLimit, log)
	a.Conversations = services.NewConversationService(turns)
	a.Documents = services.NewDocumentService(vault, store)
	a.Distill = services.NewCheckpointTracker(distiller, turns, store, checkpoints, log)
	a.Heartbeat = services.NewHeartbeat(aiResult.Agent, vault, heartbeatLog,
		notify.NewWriterNotifier(out, log), cfg.Heartbeat, log,
		services.WithHeartbeatPrompts(prompts))

	return a, nil
}

// Close releases every resource in reverse wiring order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
