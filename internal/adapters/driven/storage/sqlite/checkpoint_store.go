package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// checkpointStore implements driven.CheckpointStore over distill_checkpoints.
type checkpointStore struct {
	store *Store
}

var _ driven.CheckpointStore = (*checkpointStore)(nil)

// Checkpoint returns the saved checkpoint of scope.
func (s *checkpointStore) Checkpoint(ctx context.Context, scope string) (time.Time, bool, error) {
	var checkpoint string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT checkpoint FROM distill_checkpoints WHERE scope = ?", scope).Scan(&checkpoint)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying checkpoint of %s: %w", scope, err)
	}
	return parseTime(checkpoint), true, nil
}

// SaveCheckpoint upserts the checkpoint of scope.
func (s *checkpointStore) SaveCheckpoint(ctx context.Context, scope string, checkpoint time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO distill_checkpoints (scope, checkpoint, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (scope) DO UPDATE SET
			checkpoint = excluded.checkpoint,
			updated_at = excluded.updated_at
	`, scope, formatTime(checkpoint), formatTime(s.store.now()))
	if err != nil {
		return fmt.Errorf("saving checkpoint of %s: %w", scope, err)
	}
	return nil
}
