package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is the number of results kept per task.
const historyRetention = 100

// DefaultTickInterval is how often the scheduler looks for due tasks.
const DefaultTickInterval = time.Minute

// Task is a periodic unit of work. Run returns the number of items handled.
type Task struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Scheduler manages background task execution.
// Each tick is synchronous per task; a task never overlaps with itself.
type Scheduler struct {
	tasks  map[string]Task
	order  []string
	store  driven.SchedulerStore
	tick   time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	busy    map[string]bool
	state   map[string]*domain.ScheduledTask
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often due tasks are checked.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithSchedulerClock overrides the scheduler clock.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a scheduler for tasks. store may be nil, in which case
// task state lives in memory only.
func NewScheduler(store driven.SchedulerStore, log *zap.Logger, tasks []Task, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		tasks:  make(map[string]Task, len(tasks)),
		store:  store,
		tick:   DefaultTickInterval,
		logger: logger.OrNop(log),
		now:    time.Now,
		busy:   make(map[string]bool),
		state:  make(map[string]*domain.ScheduledTask),
	}
	for _, t := range tasks {
		if t.Run == nil || t.Interval <= 0 {
			continue
		}
		s.tasks[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		s.logger.Warn("scheduler: failed to initialise tasks", zap.Error(err))
	}

	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// RunOnce runs the task immediately, regardless of its schedule, and waits for it.
func (s *Scheduler) RunOnce(ctx context.Context, id string) (domain.TaskResult, error) {
	task, ok := s.tasks[id]
	if !ok {
		return domain.TaskResult{}, domain.ErrNotFound
	}
	if err := s.loadState(ctx, task); err != nil {
		return domain.TaskResult{}, err
	}
	if !s.claim(id) {
		return domain.TaskResult{}, domain.ErrTaskRunning
	}
	return s.execute(ctx, task), nil
}

// Tasks returns the current state of every registered task.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ScheduledTask, 0, len(s.order))
	for _, id := range s.order {
		if st, ok := s.state[id]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// initialiseTasks restores persisted state and applies interval changes.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range s.order {
		if err := s.loadState(ctx, s.tasks[id]); err != nil {
			return err
		}
	}
	return nil
}

// loadState makes sure the task has in-memory state, restoring it from the store
// when one is configured.
func (s *Scheduler) loadState(ctx context.Context, task Task) error {
	s.mu.Lock()
	_, ok := s.state[task.ID]
	s.mu.Unlock()
	if ok {
		return nil
	}

	var st *domain.ScheduledTask
	if s.store != nil {
		stored, err := s.store.GetTask(ctx, task.ID)
		if err != nil {
			return err
		}
		st = stored
	}
	if st == nil {
		st = &domain.ScheduledTask{
			ID:       task.ID,
			Name:     task.Name,
			Interval: task.Interval,
			NextRun:  s.now().Add(task.Interval),
		}
	}
	if st.Interval != task.Interval {
		st.Interval = task.Interval
		st.NextRun = s.now().Add(task.Interval)
	}
	st.Name = task.Name

	if s.store != nil {
		if err := s.store.SaveTask(ctx, st); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state[task.ID] = st
	s.mu.Unlock()
	return nil
}

// checkAndRunDueTasks starts every due task that is not already running.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	now := s.now()
	for _, id := range s.order {
		s.mu.Lock()
		st, ok := s.state[id]
		due := ok && st.Due(now)
		s.mu.Unlock()
		if !due || !s.claim(id) {
			continue
		}

		task := s.tasks[id]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute(ctx, task)
		}()
	}
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[id] {
		return false
	}
	s.busy[id] = true
	return true
}

// execute runs a claimed task and records its result.
func (s *Scheduler) execute(ctx context.Context, task Task) domain.TaskResult {
	defer func() {
		s.mu.Lock()
		delete(s.busy, task.ID)
		s.mu.Unlock()
	}()

	result := domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	items, err := task.Run(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = items
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
		s.logger.Warn("scheduler: task failed", zap.String("task", task.ID), zap.Error(err))
	} else {
		s.logger.Debug("scheduler: task finished", zap.String("task", task.ID), zap.Int("items", items))
	}

	s.mu.Lock()
	st := s.state[task.ID]
	st.LastRun = result.StartedAt
	st.NextRun = result.EndedAt.Add(task.Interval)
	if err != nil {
		st.LastError = result.Error
	} else {
		st.LastError = ""
		st.LastSuccess = result.EndedAt
	}
	snapshot := *st
	s.mu.Unlock()

	if s.store == nil {
		return result
	}
	if saveErr := s.store.SaveTask(ctx, &snapshot); saveErr != nil {
		s.logger.Warn("scheduler: failed to save task", zap.String("task", task.ID), zap.Error(saveErr))
	}
	if recordErr := s.store.RecordResult(ctx, &result); recordErr != nil {
		s.logger.Warn("scheduler: failed to record result", zap.String("task", task.ID), zap.Error(recordErr))
	}
	if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
		s.logger.Warn("scheduler: failed to prune history", zap.Error(pruneErr))
	}
	return result
}
