// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
)

// State represents what the active view is doing.
type State string

const (
	StateReady   State = "ready"
	StateBusy    State = "busy"
	StateError   State = "error"
	StateResults State = "results"
)

// Bar displays view status on the left and keybinding hints on the right.
type Bar struct {
	styles  *styles.Styles
	hints   []key.Binding
	state   State
	message string
	count   int
	noun    string
	width   int
}

// NewBar creates a status bar counting items named noun, e.g. "results".
func NewBar(s *styles.Styles, noun string, hints []key.Binding) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if hints == nil {
		hints = []key.Binding{keymap.DefaultKeyMap().Back}
	}

	return &Bar{
		styles: s,
		hints:  hints,
		state:  StateReady,
		noun:   noun,
		width:  80,
	}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return b.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateBusy:
		if b.message != "" {
			return b.styles.Muted.Render(b.message)
		}
		return b.styles.Muted.Render("Working...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateResults:
		text := fmt.Sprintf("%d %s", b.count, b.noun)
		if b.message != "" {
			text += " · " + b.message
		}
		return b.styles.Normal.Render(text)
	default:
		if b.message != "" {
			return b.styles.Normal.Render(b.message)
		}
		return b.styles.Muted.Render("Ready")
	}
}

func (b *Bar) renderRight() string {
	parts := make([]string, 0, len(b.hints))
	for _, h := range b.hints {
		help := h.Help()
		parts = append(parts, help.Key+": "+help.Desc)
	}
	return b.styles.Muted.Render(strings.Join(parts, " | "))
}

// Busy marks a running operation with an optional message.
func (b *Bar) Busy(message string) {
	b.state = StateBusy
	b.message = message
}

// Fail shows err.
func (b *Bar) Fail(err error) {
	b.state = StateError
	b.message = err.Error()
}

// Results shows a count of n items and clears any message.
func (b *Bar) Results(n int) {
	b.state = StateResults
	b.count = n
	b.message = ""
}

// Note sets a message without changing state. An error state returns to ready.
func (b *Bar) Note(message string) {
	if b.state == StateError || b.state == StateBusy {
		b.state = StateReady
		if b.count > 0 {
			b.state = StateResults
		}
	}
	b.message = message
}

// SetHints replaces the keybinding hints.
func (b *Bar) SetHints(hints []key.Binding) {
	b.hints = hints
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Clear resets the status bar to ready.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.count = 0
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// Count returns the item count shown in the results state.
func (b *Bar) Count() int {
	return b.count
}
