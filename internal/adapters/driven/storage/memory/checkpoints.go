package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure CheckpointStore implements the interface.
var _ driven.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is an in-memory implementation of driven.CheckpointStore.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]time.Time
}

// NewCheckpointStore creates an empty checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{checkpoints: make(map[string]time.Time)}
}

// Checkpoint returns the saved checkpoint of scope.
func (s *CheckpointStore) Checkpoint(_ context.Context, scope string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[scope]
	return cp, ok, nil
}

// SaveCheckpoint records checkpoint for scope.
func (s *CheckpointStore) SaveCheckpoint(_ context.Context, scope string, checkpoint time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[scope] = checkpoint
	return nil
}
