package status

import (
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
)

func TestNewBar(t *testing.T) {
	b := NewBar(nil, "results", nil)
	require.NotNil(t, b)
	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "Ready")
	assert.Contains(t, b.View(), "esc: back")
}

func TestBar_Transitions(t *testing.T) {
	b := NewBar(nil, "documents", nil)

	b.Busy("Loading vault...")
	assert.Equal(t, StateBusy, b.State())
	assert.Contains(t, b.View(), "Loading vault...")

	b.Results(12)
	assert.Equal(t, StateResults, b.State())
	assert.Equal(t, 12, b.Count())
	assert.Empty(t, b.Message())
	assert.Contains(t, b.View(), "12 documents")

	b.Fail(errors.New("vault unreadable"))
	assert.Equal(t, StateError, b.State())
	assert.Contains(t, b.View(), "Error: vault unreadable")

	b.Note("notes/a.md: 3 chunks")
	assert.Equal(t, StateResults, b.State())
	assert.Contains(t, b.View(), "12 documents · notes/a.md: 3 chunks")

	b.Clear()
	assert.Equal(t, StateReady, b.State())
	assert.Zero(t, b.Count())
}

func TestBar_BusyWithoutMessage(t *testing.T) {
	b := NewBar(nil, "results", nil)
	b.Busy("")
	assert.Contains(t, b.View(), "Working...")
}

func TestBar_NoteFromErrorWithoutCount(t *testing.T) {
	b := NewBar(nil, "results", nil)
	b.Fail(errors.New("boom"))
	b.Note("try again")
	assert.Equal(t, StateReady, b.State())
	assert.Contains(t, b.View(), "try again")
}

func TestBar_Hints(t *testing.T) {
	km := keymap.DefaultKeyMap()
	b := NewBar(nil, "results", []key.Binding{km.NewSearch, km.Back})
	b.SetWidth(120)

	view := b.View()
	assert.Contains(t, view, "n: new search | esc: back")

	b.SetHints(km.DocumentsHelp())
	assert.Contains(t, b.View(), "r: reload")
}
