package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// TurnStore persists conversation turns. Turns are append-only.
type TurnStore interface {
	// Append stores a turn and returns it with its assigned ID.
	Append(ctx context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error)

	// Since returns turns of scope with a timestamp strictly after since, oldest first.
	Since(ctx context.Context, scope string, since time.Time) ([]domain.ConversationTurn, error)

	// Recent returns the newest n turns of scope, oldest first.
	Recent(ctx context.Context, scope string, n int) ([]domain.ConversationTurn, error)

	// Scopes lists every scope with at least one turn.
	Scopes(ctx context.Context) ([]string, error)
}

// CheckpointStore persists the distillation checkpoint of each scope.
type CheckpointStore interface {
	// Checkpoint returns the saved checkpoint of scope and whether one exists.
	Checkpoint(ctx context.Context, scope string) (time.Time, bool, error)

	// SaveCheckpoint records checkpoint for scope, replacing any earlier value.
	SaveCheckpoint(ctx context.Context, scope string, checkpoint time.Time) error
}
