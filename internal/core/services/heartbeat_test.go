package services

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

type heartbeatFixture struct {
	clock    time.Time
	agent    *mockAgent
	vault    *mockVault
	log      *mockHeartbeatLog
	notifier *mockNotifier
	h        *Heartbeat
}

func newHeartbeatFixture(t *testing.T) *heartbeatFixture {
	t.Helper()
	f := &heartbeatFixture{
		clock:    time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		agent:    &mockAgent{reply: "Reminder: renew passport this week"},
		vault:    newMockVault(map[string]string{"heartbeat.md": "- [daily] check passport expiry"}),
		notifier: &mockNotifier{},
	}
	now := func() time.Time { return f.clock }
	f.log = newMockHeartbeatLog(now)
	f.h = NewHeartbeat(f.agent, f.vault, f.log, f.notifier, domain.HeartbeatConfig{
		Enabled:     true,
		ActiveStart: "08:00",
		ActiveEnd:   "22:00",
		Timezone:    "UTC",
		Recipient:   "chat-1",
		Checklist:   "heartbeat.md",
	}, nil, WithHeartbeatClock(now))
	return f
}

func TestHeartbeat_DeliversAndRecords(t *testing.T) {
	f := newHeartbeatFixture(t)

	out, err := f.h.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatDelivered, out.Status)
	assert.Equal(t, domain.HashContent("Reminder: renew passport this week"), out.Hash)
	assert.Equal(t, []string{"Reminder: renew passport this week"}, f.notifier.delivered)
	require.Len(t, f.log.entries, 1)
	assert.True(t, f.log.entries[0].delivered)
	assert.Contains(t, f.agent.prompts[0], "check passport expiry")
	assert.Contains(t, f.agent.prompts[0], "HEARTBEAT_OK")
}

func TestHeartbeat_DuplicateSuppressedWithinWindow(t *testing.T) {
	f := newHeartbeatFixture(t)

	_, err := f.h.Tick(context.Background())
	require.NoError(t, err)

	f.clock = f.clock.Add(time.Hour)
	out, err := f.h.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatDuplicate, out.Status)
	assert.Len(t, f.notifier.delivered, 1)
	assert.Len(t, f.log.entries, 1)
}

func TestHeartbeat_RedeliveredAfterWindow(t *testing.T) {
	f := newHeartbeatFixture(t)

	_, err := f.h.Tick(context.Background())
	require.NoError(t, err)

	f.clock = f.clock.Add(24*time.Hour + time.Minute)
	out, err := f.h.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatDelivered, out.Status)
	assert.Len(t, f.notifier.delivered, 2)
}

func TestHeartbeat_OKIsRecordedUndelivered(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.agent.reply = "HEARTBEAT_OK"

	out, err := f.h.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatNothing, out.Status)
	assert.Empty(t, f.notifier.delivered)
	require.Len(t, f.log.entries, 1)
	assert.False(t, f.log.entries[0].delivered)
}

func TestHeartbeat_OutsideActiveHours(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.clock = time.Date(2026, 2, 12, 23, 30, 0, 0, time.UTC)

	out, err := f.h.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatInactive, out.Status)
	assert.Equal(t, 0, f.agent.callCount())
}

func TestHeartbeat_Active(t *testing.T) {
	f := newHeartbeatFixture(t)
	at := func(h, m int) time.Time { return time.Date(2026, 2, 12, h, m, 0, 0, time.UTC) }

	assert.True(t, f.h.Active(at(8, 0)))
	assert.True(t, f.h.Active(at(22, 0)))
	assert.False(t, f.h.Active(at(22, 1)))
	assert.False(t, f.h.Active(at(7, 59)))

	f.h.cfg.ActiveStart, f.h.cfg.ActiveEnd = "22:00", "06:00"
	assert.True(t, f.h.Active(at(23, 0)))
	assert.True(t, f.h.Active(at(5, 0)))
	assert.False(t, f.h.Active(at(12, 0)))
}

func TestHeartbeat_ActiveUsesTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	h := NewHeartbeat(nil, newMockVault(nil), newMockHeartbeatLog(time.Now), nil,
		domain.HeartbeatConfig{ActiveStart: "08:00", ActiveEnd: "09:00", Timezone: "Europe/Paris"}, nil)

	// 07:30 UTC is 08:30 in Paris in winter.
	assert.True(t, h.Active(time.Date(2026, 1, 15, 7, 30, 0, 0, time.UTC)))
	assert.Equal(t, loc.String(), h.location.String())
}

func TestHeartbeat_EmptyChecklist(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.vault.files["heartbeat.md"] = "  \n"

	out, err := f.h.Tick(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatNoChecks, out.Status)
	assert.Equal(t, 0, f.agent.callCount())

	delete(f.vault.files, "heartbeat.md")
	out, err = f.h.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatNoChecks, out.Status)
}

func TestHeartbeat_DeliveryFailureNotRecorded(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.notifier.err = errBoom

	out, err := f.h.Tick(context.Background())

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.HeartbeatFailed, out.Status)
	assert.Empty(t, f.log.entries)

	// The next tick retries the same message.
	f.notifier.err = nil
	out, err = f.h.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HeartbeatDelivered, out.Status)
}

func TestHeartbeat_AgentFailure(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.agent.err = errBoom

	out, err := f.h.Tick(context.Background())

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, domain.HeartbeatFailed, out.Status)
	assert.Empty(t, f.log.entries)
}

func TestHeartbeat_NoAgent(t *testing.T) {
	f := newHeartbeatFixture(t)
	f.h.agent = nil

	_, err := f.h.Tick(context.Background())

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
