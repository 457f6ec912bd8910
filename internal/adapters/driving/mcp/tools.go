package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/metrics"
)

// Tool names.
const (
	ToolSearchMemory           = "search_memory"
	ToolGetRecentConversations = "get_recent_conversations"
	ToolSaveMemory             = "save_memory"
)

// Defaults applied when a caller omits a count.
const (
	defaultSearchLimit = 5
	defaultRecentTurns = 10
	savedPreviewLen    = 100
)

// SearchInput is the input schema for the search_memory tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find relevant memories"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search_memory tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Source    string  `json:"source"`
	Content   string  `json:"content"`
	Distance  float64 `json:"distance"`
	Relevance float64 `json:"relevance"`
}

// RecentInput is the input schema for the get_recent_conversations tool.
type RecentInput struct {
	N     int    `json:"n,omitempty" jsonschema:"number of recent messages to return (default 10)"`
	Scope string `json:"scope,omitempty" jsonschema:"conversation scope to read (default: the server scope)"`
}

// RecentOutput is the output schema for the get_recent_conversations tool.
type RecentOutput struct {
	Turns []TurnOutput `json:"turns"`
	Count int          `json:"count"`
}

// TurnOutput represents one conversation turn.
type TurnOutput struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// SaveInput is the input schema for the save_memory tool.
type SaveInput struct {
	Content string `json:"content" jsonschema:"the content to save as a memory"`
	Label   string `json:"label,omitempty" jsonschema:"optional label naming the memory document (e.g. decisions)"`
}

// SaveOutput is the output schema for the save_memory tool.
type SaveOutput struct {
	Path    string `json:"path"`
	Indexed bool   `json:"indexed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolSearchMemory,
		Description: "Search past conversations and vault content by semantic similarity. " +
			"Use this when the user references past discussions, projects, or decisions.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetRecentConversations,
		Description: "Get the most recent conversation messages for immediate context, oldest first.",
	}, s.handleRecent)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolSaveMemory,
		Description: "Save an important fact or decision for future recall. " +
			"Use this when the user mentions something worth remembering.",
	}, s.handleSave)
}

// handleSearch handles the search_memory tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (_ *mcp.CallToolResult, _ SearchOutput, err error) {
	defer s.observe(ToolSearchMemory, &err)

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := s.ports.Search.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			Source:    r.SourceDocument,
			Content:   r.Content,
			Distance:  r.Distance,
			Relevance: r.Relevance(),
		}
	}

	return textResult(FormatSearchResults(results)), output, nil
}

// handleRecent handles the get_recent_conversations tool invocation.
func (s *Server) handleRecent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RecentInput,
) (_ *mcp.CallToolResult, _ RecentOutput, err error) {
	defer s.observe(ToolGetRecentConversations, &err)

	n := input.N
	if n <= 0 {
		n = defaultRecentTurns
	}

	turns, err := s.ports.Conversations.Recent(ctx, s.ports.scope(input.Scope), n)
	if err != nil {
		return nil, RecentOutput{}, fmt.Errorf("reading conversations: %w", err)
	}

	output := RecentOutput{
		Turns: make([]TurnOutput, len(turns)),
		Count: len(turns),
	}
	for i, t := range turns {
		output.Turns[i] = TurnOutput{
			Role:      string(t.Role),
			Content:   t.Content,
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	return textResult(FormatTurns(turns)), output, nil
}

// handleSave handles the save_memory tool invocation.
// A memory that was written but could not be indexed is still a success.
func (s *Server) handleSave(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SaveInput,
) (_ *mcp.CallToolResult, _ SaveOutput, err error) {
	defer s.observe(ToolSaveMemory, &err)

	path, err := s.ports.Index.Remember(ctx, input.Label, input.Content)
	if err != nil && (path == "" || !errors.Is(err, domain.ErrEmbeddingUnavailable)) {
		return nil, SaveOutput{}, fmt.Errorf("saving memory: %w", err)
	}

	output := SaveOutput{Path: path, Indexed: err == nil}
	text := fmt.Sprintf("Memory saved to %s: %q", path, preview(strings.TrimSpace(input.Content)))
	if !output.Indexed {
		text += "\n(not indexed: embedding service unavailable)"
	}
	return textResult(text), output, nil
}

func (s *Server) observe(tool string, err *error) {
	metrics.ToolCalls.WithLabelValues(tool, metrics.Result(*err)).Inc()
	if *err != nil {
		s.logger.Warn("mcp tool failed", zap.String("tool", tool), zap.Error(*err))
	}
}

// FormatSearchResults renders results for an agent, numbering from 1.
func FormatSearchResults(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "No relevant memories found for this query."
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[%d] (source: %s, relevance: %.2f)\n%s",
			i+1, r.SourceDocument, r.Relevance(), r.Content)
	}
	return fmt.Sprintf("Found %d relevant memories:\n\n%s", len(results), strings.Join(parts, "\n\n---\n\n"))
}

// FormatTurns renders turns oldest first.
func FormatTurns(turns []domain.ConversationTurn) string {
	if len(turns) == 0 {
		return "No conversation history found."
	}

	parts := make([]string, len(turns))
	for i, t := range turns {
		parts[i] = fmt.Sprintf("[%s] %s: %s", t.Timestamp.UTC().Format(time.RFC3339), t.Role, t.Content)
	}
	return fmt.Sprintf("Last %d messages:\n\n%s", len(turns), strings.Join(parts, "\n\n"))
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= savedPreviewLen {
		return s
	}
	return string(r[:savedPreviewLen]) + "..."
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
