package driven

import "context"

// HeartbeatLog records evaluated proactive notifications and answers dedup queries.
type HeartbeatLog interface {
	// IsDuplicate reports whether a record with hash was created within the
	// dedup window ending now.
	IsDuplicate(ctx context.Context, hash string) (bool, error)

	// Record appends a record. It never updates or removes earlier records.
	Record(ctx context.Context, hash, content string, delivered bool) error
}

// Notifier delivers a proactive message to the user over the chat transport.
type Notifier interface {
	Deliver(ctx context.Context, recipient, text string) error
}
