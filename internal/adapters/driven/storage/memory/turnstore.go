package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure TurnStore implements the interface.
var _ driven.TurnStore = (*TurnStore)(nil)

// TurnStore is an in-memory implementation of driven.TurnStore.
type TurnStore struct {
	mu     sync.RWMutex
	turns  map[string][]domain.ConversationTurn
	nextID int64
	now    func() time.Time
}

// NewTurnStore creates a new in-memory turn store.
func NewTurnStore() *TurnStore {
	return &TurnStore{
		turns: make(map[string][]domain.ConversationTurn),
		now:   time.Now,
	}
}

// Append stores a turn. A zero timestamp is replaced by the current time.
func (s *TurnStore) Append(_ context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	if err := turn.Validate(); err != nil {
		return domain.ConversationTurn{}, err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	turn.Timestamp = turn.Timestamp.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	turn.ID = s.nextID

	scoped := append(s.turns[turn.Scope], turn)
	sort.SliceStable(scoped, func(i, j int) bool {
		return scoped[i].Timestamp.Before(scoped[j].Timestamp)
	})
	s.turns[turn.Scope] = scoped
	return turn, nil
}

// Since returns turns of scope strictly after since, oldest first.
func (s *TurnStore) Since(_ context.Context, scope string, since time.Time) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.ConversationTurn{}
	for _, turn := range s.turns[scope] {
		if turn.Timestamp.After(since) {
			result = append(result, turn)
		}
	}
	return result, nil
}

// Recent returns the newest n turns of scope, oldest first.
func (s *TurnStore) Recent(_ context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scoped := s.turns[scope]
	if n <= 0 {
		return []domain.ConversationTurn{}, nil
	}
	if n > len(scoped) {
		n = len(scoped)
	}
	result := make([]domain.ConversationTurn, n)
	copy(result, scoped[len(scoped)-n:])
	return result, nil
}

// Scopes lists every scope with at least one turn.
func (s *TurnStore) Scopes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.turns))
	for scope := range s.turns {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes, nil
}
