package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestTurnCmd_AddAndList(t *testing.T) {
	a := newTestApp()
	conv := &mockConversationService{}
	a.Conversations = conv
	useApp(t, a)

	out, err := execute(t, "turn", "add", "--scope", "chat-1", "I", "like", "basil")
	require.NoError(t, err)
	assert.Equal(t, "Recorded turn 1 in chat-1", out)

	_, err = execute(t, "turn", "add", "-s", "chat-1", "-r", "assistant", "Noted.")
	require.NoError(t, err)

	require.Len(t, conv.turns, 2)
	assert.Equal(t, domain.RoleUser, conv.turns[0].Role)
	assert.Equal(t, "I like basil", conv.turns[0].Content)
	assert.Equal(t, domain.RoleAssistant, conv.turns[1].Role)

	conv.turns[0].Timestamp = testTime
	conv.turns[1].Timestamp = testTime
	out, err = execute(t, "turn", "list", "--scope", "chat-1", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "Last 1 messages:\n\n[2026-10-18T09:30:00Z] assistant: Noted.", out)
}

func TestTurnCmd_DefaultScope(t *testing.T) {
	a := newTestApp()
	conv := &mockConversationService{}
	a.Conversations = conv
	useApp(t, a)

	_, err := execute(t, "turn", "add", "hello")
	require.NoError(t, err)
	require.Len(t, conv.turns, 1)
	assert.Equal(t, "default", conv.turns[0].Scope)

	out, err := execute(t, "turn", "list", "--scope", "other")
	require.NoError(t, err)
	assert.Equal(t, "No conversation history found.", out)
}

func TestTurnCmd_InvalidRole(t *testing.T) {
	useApp(t, newTestApp())

	_, err := execute(t, "turn", "add", "--role", "system", "hi")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
