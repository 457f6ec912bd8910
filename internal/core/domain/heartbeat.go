package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// HeartbeatDedupWindow is how long an identical notification stays suppressed.
const HeartbeatDedupWindow = 24 * time.Hour

// HeartbeatOK is the marker the agent returns when there is nothing to report.
const HeartbeatOK = "HEARTBEAT_OK"

// HeartbeatRecord is one evaluated proactive notification. Records are append-only.
type HeartbeatRecord struct {
	ID          int64
	ContentHash string
	Content     string
	Delivered   bool
	Timestamp   time.Time
}

// HashContent returns the SHA-256 hex digest of the exact notification text.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HeartbeatStatus describes how a heartbeat tick ended.
type HeartbeatStatus string

const (
	HeartbeatInactive  HeartbeatStatus = "inactive"
	HeartbeatNoChecks  HeartbeatStatus = "no_checklist"
	HeartbeatNothing   HeartbeatStatus = "ok"
	HeartbeatDuplicate HeartbeatStatus = "duplicate"
	HeartbeatDelivered HeartbeatStatus = "delivered"
	HeartbeatFailed    HeartbeatStatus = "delivery_failed"
)

// HeartbeatOutcome reports what a heartbeat tick did.
type HeartbeatOutcome struct {
	Status  HeartbeatStatus
	Hash    string
	Message string
}
