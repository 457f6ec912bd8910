package mcp

import (
	"context"
	"sort"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastLimit int
}

func (m *mockSearchService) Search(_ context.Context, _ string, limit int) ([]domain.SearchResult, error) {
	m.lastLimit = limit
	return m.results, m.err
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	turns     map[string][]domain.ConversationTurn
	err       error
	lastScope string
	lastN     int
}

func (m *mockConversationService) AddTurn(_ context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	return turn, m.err
}

func (m *mockConversationService) Recent(_ context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	m.lastScope = scope
	m.lastN = n
	if m.err != nil {
		return nil, m.err
	}
	turns := m.turns[scope]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	path      string
	err       error
	lastLabel string
	saved     []string
}

func (m *mockIndexService) IndexVault(_ context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, m.err
}

func (m *mockIndexService) RebuildVault(_ context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, m.err
}

func (m *mockIndexService) IndexDocument(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockIndexService) Remember(_ context.Context, label, content string) (string, error) {
	m.lastLabel = label
	m.saved = append(m.saved, content)
	return m.path, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	docs    map[string]string
	indexed map[string]bool
	err     error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	paths := make([]string, 0, len(m.docs))
	for p := range m.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	infos := make([]domain.DocumentInfo, len(paths))
	for i, p := range paths {
		infos[i] = domain.DocumentInfo{Path: p, Indexed: m.indexed[p]}
	}
	return infos, nil
}

func (m *mockDocumentService) Get(_ context.Context, path string) (domain.Document, error) {
	if m.err != nil {
		return domain.Document{}, m.err
	}
	content, ok := m.docs[path]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return domain.Document{Path: path, Content: content}, nil
}

func newTestPorts() (*Ports, *mockSearchService, *mockConversationService, *mockIndexService) {
	search := &mockSearchService{}
	conv := &mockConversationService{turns: map[string][]domain.ConversationTurn{}}
	index := &mockIndexService{path: "manual/notes.md"}
	return &Ports{Search: search, Conversations: conv, Index: index}, search, conv, index
}
