package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a message written by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a message written by the agent.
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ConversationTurn is one message exchanged within a chat scope.
// Turns are append-only.
type ConversationTurn struct {
	// ID is assigned by the store on append.
	ID int64

	// Scope identifies the conversation (e.g. a chat id).
	Scope string

	// Role is the author of the turn.
	Role Role

	// Content is the message text.
	Content string

	// Timestamp is when the turn was recorded.
	Timestamp time.Time
}

// Validate checks the turn can be stored.
func (t ConversationTurn) Validate() error {
	if t.Scope == "" {
		return fmt.Errorf("%w: turn scope is required", ErrInvalidInput)
	}
	if !t.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, t.Role)
	}
	if t.Content == "" {
		return fmt.Errorf("%w: turn content is required", ErrInvalidInput)
	}
	return nil
}
