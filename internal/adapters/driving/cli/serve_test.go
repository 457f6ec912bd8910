package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestServeTasks_AgentNotConfigured(t *testing.T) {
	a := newTestApp()
	a.Config.Agent.APIKey = ""

	assert.Empty(t, serveTasks(a))
}

func TestServeTasks(t *testing.T) {
	a := newTestApp()
	a.Distill = &mockDistillRunner{distilled: 3}
	hb := &mockHeartbeatService{outcome: domain.HeartbeatOutcome{Status: domain.HeartbeatDelivered}}
	a.Heartbeat = hb

	tasks := serveTasks(a)
	require.Len(t, tasks, 2)

	assert.Equal(t, domain.TaskIDDistill, tasks[0].ID)
	assert.Equal(t, a.Config.Distill.Interval, tasks[0].Interval)
	n, err := tasks[0].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, domain.TaskIDHeartbeat, tasks[1].ID)
	assert.Equal(t, a.Config.Heartbeat.Interval, tasks[1].Interval)
	n, err = tasks[1].Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hb.outcome = domain.HeartbeatOutcome{Status: domain.HeartbeatDuplicate}
	n, err = tasks[1].Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, hb.ticks)
}

func TestServeTasks_HeartbeatDisabled(t *testing.T) {
	a := newTestApp()
	a.Config.Heartbeat.Enabled = false

	tasks := serveTasks(a)

	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskIDDistill, tasks[0].ID)
}

func TestReindexOnChange(t *testing.T) {
	a := newTestApp()
	idx := &mockIndexService{chunks: map[string]int{"today.md": 2}}
	a.Index = idx

	handle := reindexOnChange(a)
	handle(context.Background(), "today.md")

	idx.err = errors.New("embed failed")
	handle(context.Background(), "broken.md")

	assert.Equal(t, []string{"today.md", "broken.md"}, idx.documents)
}

func TestServeCmd_StopsOnCancel(t *testing.T) {
	a := newTestApp()
	a.Config.Agent.APIKey = ""
	a.Config.Watch.Enabled = false
	idx := &mockIndexService{}
	a.Index = idx
	useApp(t, a)

	resetFlags()
	t.Cleanup(resetFlags)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"serve", "--skip-index"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Serving vault /vault")
	assert.Empty(t, idx.documents)
}
