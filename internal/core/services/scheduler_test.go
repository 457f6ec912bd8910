package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func countingTask(id string, interval time.Duration, counter *atomic.Int32, err error) Task {
	return Task{
		ID:       id,
		Name:     id,
		Interval: interval,
		Run: func(context.Context) (int, error) {
			counter.Add(1)
			return 1, err
		},
	}
}

func TestNewScheduler_SkipsInvalidTasks(t *testing.T) {
	var n atomic.Int32
	s := NewScheduler(nil, nil, []Task{
		countingTask("ok", time.Minute, &n, nil),
		{ID: "no-run", Interval: time.Minute},
		countingTask("no-interval", 0, &n, nil),
	})
	assert.Len(t, s.tasks, 1)
	assert.Equal(t, []string{"ok"}, s.order)
}

func TestScheduler_RunOnce(t *testing.T) {
	var n atomic.Int32
	store := newMockSchedulerStore()
	s := NewScheduler(store, nil, []Task{countingTask(domain.TaskIDDistill, time.Hour, &n, nil)})

	result, err := s.RunOnce(context.Background(), domain.TaskIDDistill)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, int32(1), n.Load())

	saved, err := store.GetTask(context.Background(), domain.TaskIDDistill)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.False(t, saved.LastSuccess.IsZero())
	assert.True(t, saved.NextRun.After(saved.LastRun))
	assert.Len(t, store.results, 1)
}

func TestScheduler_RunOnce_RecordsFailure(t *testing.T) {
	var n atomic.Int32
	store := newMockSchedulerStore()
	s := NewScheduler(store, nil, []Task{countingTask(domain.TaskIDHeartbeat, time.Hour, &n, errBoom)})

	result, err := s.RunOnce(context.Background(), domain.TaskIDHeartbeat)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
	saved, _ := store.GetTask(context.Background(), domain.TaskIDHeartbeat)
	assert.Equal(t, "boom", saved.LastError)
}

func TestScheduler_RunOnce_UnknownTask(t *testing.T) {
	s := NewScheduler(nil, nil, nil)
	_, err := s.RunOnce(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduler_RunOnce_Overlap(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := NewScheduler(nil, nil, []Task{{
		ID: "slow", Name: "slow", Interval: time.Hour,
		Run: func(context.Context) (int, error) {
			close(entered)
			<-release
			return 0, nil
		},
	}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.RunOnce(context.Background(), "slow")
	}()
	<-entered

	_, err := s.RunOnce(context.Background(), "slow")
	assert.ErrorIs(t, err, domain.ErrTaskRunning)

	close(release)
	wg.Wait()
}

func TestScheduler_StartRunsOverdueTasks(t *testing.T) {
	var n atomic.Int32
	store := newMockSchedulerStore()
	// Persisted state from a previous process that is already overdue.
	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID: "overdue", Name: "overdue", Interval: time.Hour, NextRun: time.Now().Add(-time.Minute),
	}))
	s := NewScheduler(store, nil, []Task{countingTask("overdue", time.Hour, &n, nil)},
		WithTickInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Next run is an hour away, so further ticks do nothing.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), n.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduler_NewTaskWaitsOneInterval(t *testing.T) {
	var n atomic.Int32
	clock := time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	s := NewScheduler(nil, nil, []Task{countingTask("t", 30*time.Minute, &n, nil)},
		WithTickInterval(5*time.Millisecond), WithSchedulerClock(now))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), n.Load())

	mu.Lock()
	clock = clock.Add(31 * time.Minute)
	mu.Unlock()
	assert.Eventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	require.Len(t, s.Tasks(), 1)
	assert.Equal(t, "t", s.Tasks()[0].ID)
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s := NewScheduler(nil, nil, nil, WithTickInterval(time.Millisecond))
	assert.NoError(t, s.Stop())

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, time.Second, time.Millisecond)

	assert.NoError(t, s.Stop())
	assert.NoError(t, <-done)
	assert.NoError(t, s.Stop())
}
