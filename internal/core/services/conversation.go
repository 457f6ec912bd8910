package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ensure conversationService implements the interface.
var _ driving.ConversationService = (*conversationService)(nil)

// DefaultRecentTurns is used when a caller asks for zero recent turns.
const DefaultRecentTurns = 20

type conversationService struct {
	turns driven.TurnStore
	now   func() time.Time
}

// NewConversationService creates a new conversation service.
func NewConversationService(turns driven.TurnStore) driving.ConversationService {
	return &conversationService{turns: turns, now: time.Now}
}

// AddTurn validates and stores a turn.
func (s *conversationService) AddTurn(ctx context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error) {
	if err := turn.Validate(); err != nil {
		return domain.ConversationTurn{}, err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	stored, err := s.turns.Append(ctx, turn)
	if err != nil {
		return domain.ConversationTurn{}, fmt.Errorf("append turn: %w", err)
	}
	return stored, nil
}

// Recent returns the newest n turns of scope, oldest first.
func (s *conversationService) Recent(ctx context.Context, scope string, n int) ([]domain.ConversationTurn, error) {
	if scope == "" {
		return nil, fmt.Errorf("%w: scope is required", domain.ErrInvalidInput)
	}
	if n <= 0 {
		n = DefaultRecentTurns
	}
	return s.turns.Recent(ctx, scope, n)
}
