package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// HeartbeatService runs one proactive check.
type HeartbeatService interface {
	Tick(ctx context.Context) (domain.HeartbeatOutcome, error)
}
