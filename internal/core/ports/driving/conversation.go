package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// ConversationService records and reads conversation turns.
type ConversationService interface {
	// AddTurn validates and stores a turn. A zero timestamp is set to now.
	AddTurn(ctx context.Context, turn domain.ConversationTurn) (domain.ConversationTurn, error)

	// Recent returns the newest n turns of scope, oldest first.
	Recent(ctx context.Context, scope string, n int) ([]domain.ConversationTurn, error)
}

// DistillService decides when pending turns become a vault memory section.
type DistillService interface {
	// Check distils the turns of scope newer than checkpoint when enough are pending.
	// The returned outcome carries the checkpoint to pass to the next call.
	Check(ctx context.Context, scope string, checkpoint time.Time) (domain.DistillOutcome, error)
}
