// Package notify provides Notifier adapters for proactive heartbeat messages.
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure WriterNotifier implements the interface.
var _ driven.Notifier = (*WriterNotifier)(nil)

// WriterNotifier prints notifications to a writer, one block per message.
// It stands in for a chat transport when recall runs as a local daemon.
type WriterNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	logger *zap.Logger
	now    func() time.Time
}

// NewWriterNotifier creates a notifier writing to w.
func NewWriterNotifier(w io.Writer, log *zap.Logger) *WriterNotifier {
	return &WriterNotifier{w: w, logger: logger.OrNop(log), now: time.Now}
}

// Deliver writes text addressed to recipient.
func (n *WriterNotifier) Deliver(ctx context.Context, recipient, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to := recipient
	if to == "" {
		to = "you"
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	header := fmt.Sprintf("[%s] heartbeat for %s", n.now().Format(time.RFC3339), to)
	if _, err := fmt.Fprintf(n.w, "%s\n%s\n\n", header, strings.TrimSpace(text)); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	n.logger.Info("heartbeat delivered", zap.String("recipient", to), zap.Int("chars", len(text)))
	return nil
}
