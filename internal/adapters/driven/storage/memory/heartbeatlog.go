package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure HeartbeatLog implements the interface.
var _ driven.HeartbeatLog = (*HeartbeatLog)(nil)

// HeartbeatLog is an in-memory implementation of driven.HeartbeatLog.
type HeartbeatLog struct {
	mu      sync.RWMutex
	records []domain.HeartbeatRecord
	now     func() time.Time
}

// NewHeartbeatLog creates a new in-memory heartbeat log. A nil clock uses time.Now.
func NewHeartbeatLog(now func() time.Time) *HeartbeatLog {
	if now == nil {
		now = time.Now
	}
	return &HeartbeatLog{now: now}
}

// IsDuplicate reports whether hash was recorded within the dedup window.
func (l *HeartbeatLog) IsDuplicate(_ context.Context, hash string) (bool, error) {
	cutoff := l.now().Add(-domain.HeartbeatDedupWindow)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.records) - 1; i >= 0; i-- {
		r := l.records[i]
		if r.ContentHash == hash && r.Timestamp.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// Record appends a heartbeat record.
func (l *HeartbeatLog) Record(_ context.Context, hash, content string, delivered bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, domain.HeartbeatRecord{
		ID:          int64(len(l.records) + 1),
		ContentHash: hash,
		Content:     content,
		Delivered:   delivered,
		Timestamp:   l.now().UTC(),
	})
	return nil
}

// Records returns a copy of every record, oldest first.
func (l *HeartbeatLog) Records() []domain.HeartbeatRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.HeartbeatRecord, len(l.records))
	copy(out, l.records)
	return out
}
