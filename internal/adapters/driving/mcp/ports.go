package mcp

import (
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// DefaultScope is used by get_recent_conversations when no scope is given.
const DefaultScope = "default"

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides semantic retrieval.
	Search driving.SearchService

	// Conversations reads recent turns.
	Conversations driving.ConversationService

	// Index saves memories and re-indexes them.
	Index driving.IndexService

	// Documents exposes vault documents as resources (optional).
	Documents driving.DocumentService

	// Scope is the conversation read when a caller names none (default: "default").
	Scope string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Conversations == nil {
		return ErrMissingConversationService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}

func (p *Ports) scope(requested string) string {
	if requested != "" {
		return requested
	}
	if p.Scope != "" {
		return p.Scope
	}
	return DefaultScope
}
