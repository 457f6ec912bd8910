package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/metrics"
)

// Ensure Heartbeat implements the interface.
var _ driving.HeartbeatService = (*Heartbeat)(nil)

const heartbeatMaxTokens = 1024

// errNoNotifier is returned when a notification cannot be delivered anywhere.
var errNoNotifier = errors.New("no notifier configured")

// Heartbeat asks the agent to review the vault checklist and delivers anything
// worth reporting, suppressing identical notifications within the dedup window.
type Heartbeat struct {
	agent    driven.AgentService
	vault    driven.Vault
	log      driven.HeartbeatLog
	notifier driven.Notifier
	prompts  driven.PromptStore
	cfg      domain.HeartbeatConfig
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// HeartbeatOption configures a Heartbeat.
type HeartbeatOption func(*Heartbeat)

// WithHeartbeatClock overrides the clock used for the active window.
func WithHeartbeatClock(now func() time.Time) HeartbeatOption {
	return func(h *Heartbeat) {
		if now != nil {
			h.now = now
		}
	}
}

// WithHeartbeatPrompts sets the prompt store. Without it the built-in prompt is used.
func WithHeartbeatPrompts(prompts driven.PromptStore) HeartbeatOption {
	return func(h *Heartbeat) {
		h.prompts = prompts
	}
}

// NewHeartbeat creates a heartbeat runner.
func NewHeartbeat(
	agent driven.AgentService,
	vault driven.Vault,
	log driven.HeartbeatLog,
	notifier driven.Notifier,
	cfg domain.HeartbeatConfig,
	zl *zap.Logger,
	opts ...HeartbeatOption,
) *Heartbeat {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		loc = time.UTC
	}
	h := &Heartbeat{
		agent:    agent,
		vault:    vault,
		log:      log,
		notifier: notifier,
		cfg:      cfg,
		location: loc,
		logger:   logger.OrNop(zl),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Active reports whether now falls inside the configured active window.
// Both ends are inclusive; a window whose start is after its end spans midnight.
func (h *Heartbeat) Active(now time.Time) bool {
	current := now.In(h.location).Format("15:04")
	start, end := h.cfg.ActiveStart, h.cfg.ActiveEnd
	if start <= end {
		return current >= start && current <= end
	}
	return current >= start || current <= end
}

// Tick runs one heartbeat check. Delivery failures are returned but never
// recorded, so the same notification is retried on the next tick.
func (h *Heartbeat) Tick(ctx context.Context) (domain.HeartbeatOutcome, error) {
	out, err := h.tick(ctx)
	metrics.HeartbeatTicks.WithLabelValues(string(out.Status)).Inc()
	return out, err
}

func (h *Heartbeat) tick(ctx context.Context) (domain.HeartbeatOutcome, error) {
	now := h.now()
	if !h.Active(now) {
		h.logger.Debug("outside active hours, skipping heartbeat")
		return domain.HeartbeatOutcome{Status: domain.HeartbeatInactive}, nil
	}

	doc, ok, err := h.vault.Read(ctx, h.cfg.Checklist)
	if err != nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed}, fmt.Errorf("read checklist: %w", err)
	}
	checklist := strings.TrimSpace(doc.Content)
	if !ok || checklist == "" {
		h.logger.Debug("heartbeat checklist is empty, skipping", zap.String("document", h.cfg.Checklist))
		return domain.HeartbeatOutcome{Status: domain.HeartbeatNoChecks}, nil
	}
	if h.agent == nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed}, domain.ErrLLMUnavailable
	}

	tpl, err := loadPrompt(h.prompts, domain.PromptHeartbeat)
	if err != nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed}, err
	}
	prompt := fmt.Sprintf(tpl, now.In(h.location).Format("Monday, 2 January 2006 15:04 MST"), checklist)

	reply, err := h.agent.Generate(ctx, prompt, driven.GenerateOptions{MaxTokens: heartbeatMaxTokens})
	if err != nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed}, fmt.Errorf("generate heartbeat: %w", err)
	}

	hash := domain.HashContent(reply)
	if strings.Contains(reply, domain.HeartbeatOK) {
		if err := h.log.Record(ctx, hash, reply, false); err != nil {
			return domain.HeartbeatOutcome{Status: domain.HeartbeatNothing, Hash: hash}, fmt.Errorf("record heartbeat: %w", err)
		}
		h.logger.Debug("heartbeat ok, nothing to report")
		return domain.HeartbeatOutcome{Status: domain.HeartbeatNothing, Hash: hash, Message: reply}, nil
	}

	dup, err := h.log.IsDuplicate(ctx, hash)
	if err != nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed, Hash: hash}, fmt.Errorf("dedup heartbeat: %w", err)
	}
	if dup {
		h.logger.Info("duplicate heartbeat, skipping delivery", zap.String("hash", hash))
		return domain.HeartbeatOutcome{Status: domain.HeartbeatDuplicate, Hash: hash, Message: reply}, nil
	}

	if h.notifier == nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed, Hash: hash, Message: reply}, errNoNotifier
	}
	if err := h.notifier.Deliver(ctx, h.cfg.Recipient, reply); err != nil {
		h.logger.Warn("heartbeat delivery failed", zap.Error(err))
		return domain.HeartbeatOutcome{Status: domain.HeartbeatFailed, Hash: hash, Message: reply}, fmt.Errorf("deliver heartbeat: %w", err)
	}
	if err := h.log.Record(ctx, hash, reply, true); err != nil {
		return domain.HeartbeatOutcome{Status: domain.HeartbeatDelivered, Hash: hash, Message: reply}, fmt.Errorf("record heartbeat: %w", err)
	}

	h.logger.Info("heartbeat delivered", zap.String("hash", hash))
	return domain.HeartbeatOutcome{Status: domain.HeartbeatDelivered, Hash: hash, Message: reply}, nil
}
