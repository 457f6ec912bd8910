package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// heartbeatLog implements driven.HeartbeatLog over the heartbeat_log table.
type heartbeatLog struct {
	store *Store
}

var _ driven.HeartbeatLog = (*heartbeatLog)(nil)

// IsDuplicate reports whether hash was recorded within the dedup window.
// Delivered and undelivered records both count.
func (s *heartbeatLog) IsDuplicate(ctx context.Context, hash string) (bool, error) {
	cutoff := s.store.now().Add(-domain.HeartbeatDedupWindow)

	var exists int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM heartbeat_log
			WHERE content_hash = ? AND timestamp > ?
		)
	`, hash, formatTime(cutoff)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("querying heartbeat log: %w", err)
	}
	return exists == 1, nil
}

// Record appends a heartbeat record stamped with the store clock.
func (s *heartbeatLog) Record(ctx context.Context, hash, content string, delivered bool) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO heartbeat_log (content_hash, content, delivered, timestamp)
		VALUES (?, ?, ?, ?)
	`, hash, content, boolToInt(delivered), formatTime(s.store.now()))
	if err != nil {
		return fmt.Errorf("recording heartbeat: %w", err)
	}
	return nil
}

// HeartbeatRecords returns every heartbeat record, oldest first.
func (s *Store) HeartbeatRecords(ctx context.Context) ([]domain.HeartbeatRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, content, delivered, timestamp
		FROM heartbeat_log ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying heartbeat log: %w", err)
	}
	defer rows.Close()

	records := []domain.HeartbeatRecord{}
	for rows.Next() {
		var r domain.HeartbeatRecord
		var delivered int
		var ts string
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.Content, &delivered, &ts); err != nil {
			return nil, fmt.Errorf("scanning heartbeat record: %w", err)
		}
		r.Delivered = delivered == 1
		r.Timestamp = parseTime(ts)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating heartbeat log: %w", err)
	}
	return records, nil
}
