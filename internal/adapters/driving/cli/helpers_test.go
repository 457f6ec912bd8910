package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
)

type mockIndexService struct {
	stats     domain.IndexStats
	chunks    map[string]int
	saved     string
	err       error
	documents []string
	labels    []string
	rebuilt   bool
}

func (m *mockIndexService) IndexVault(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) RebuildVault(_ context.Context) (domain.IndexStats, error) {
	m.rebuilt = true
	return m.stats, m.err
}

func (m *mockIndexService) IndexDocument(_ context.Context, path string) (int, error) {
	m.documents = append(m.documents, path)
	return m.chunks[path], m.err
}

func (m *mockIndexService) Remember(_ context.Context, label, _ string) (string, error) {
	m.labels = append(m.labels, label)
	return m.saved, m.err
}

type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	limit   int
}

func (m *mockSearchService) Search(_ context.Context, query string, limit int) ([]domain.SearchResult, error) {
	m.query = query
	m.limit = limit
	return m.results, m.err
}

type mockConversationService struct {
	turns []domain.ConversationTurn
	err   error
}

func (m *mockConversationService) AddTurn(_ context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	if m.err != nil {
		return domain.ConversationTurn{}, m.err
	}
	if err := turn.Validate(); err != nil {
		return domain.ConversationTurn{}, err
	}
	turn.ID = int64(len(m.turns) + 1)
	m.turns = append(m.turns, turn)
	return turn, nil
}

func (m *mockConversationService) Recent(_ context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	var out []domain.ConversationTurn
	for _, t := range m.turns {
		if t.Scope == scope {
			out = append(out, t)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, m.err
}

type mockDocumentService struct {
	docs []domain.DocumentInfo
	err  error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(_ context.Context, path string) (domain.Document, error) {
	return domain.Document{}, domain.ErrNotFound
}

type mockDistillRunner struct {
	outcome   domain.DistillOutcome
	distilled int
	err       error
	scopes    []string
}

func (m *mockDistillRunner) Run(_ context.Context, scope string) (domain.DistillOutcome, error) {
	m.scopes = append(m.scopes, scope)
	return m.outcome, m.err
}

func (m *mockDistillRunner) RunAll(_ context.Context) (int, error) {
	return m.distilled, m.err
}

type mockHeartbeatService struct {
	outcome domain.HeartbeatOutcome
	err     error
	ticks   int
}

func (m *mockHeartbeatService) Tick(_ context.Context) (domain.HeartbeatOutcome, error) {
	m.ticks++
	return m.outcome, m.err
}

// newTestApp returns an App backed by mocks with agent and embedding configured.
func newTestApp() *App {
	cfg := domain.DefaultConfig()
	cfg.VaultPath = "/vault"
	cfg.Embedding.APIKey = "test"
	cfg.Agent.APIKey = "test"
	return &App{
		Config:        cfg,
		Logger:        zap.NewNop(),
		Index:         &mockIndexService{chunks: map[string]int{}},
		Search:        &mockSearchService{},
		Conversations: &mockConversationService{},
		Documents:     &mockDocumentService{},
		Distill:       &mockDistillRunner{},
		Heartbeat:     &mockHeartbeatService{},
		HeartbeatRecords: func(context.Context) ([]domain.HeartbeatRecord, error) {
			return nil, nil
		},
	}
}

// useApp installs a as the global app for the duration of the test.
func useApp(t *testing.T, a *App) {
	t.Helper()
	original, originalOwned := app, ownsApp
	app, ownsApp = a, false
	t.Cleanup(func() { app, ownsApp = original, originalOwned })
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	configPath = ""
	verbose = false
	ephemeral = false
	indexForce = false
	searchLimit = 0
	searchJSON = false
	turnScope = "default"
	turnRole = string(domain.RoleUser)
	turnLimit = 10
	distillScope = ""
	heartbeatLogLimit = 20
	rememberLabel = ""
	initVault = ""
	initForce = false
	serveMetricsAddr = ""
	serveSkipIndex = false
	serveTick = time.Minute
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return strings.TrimSpace(buf.String()), err
}

var testTime = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
