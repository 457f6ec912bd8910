// Package doccontent provides the document reader view for the TUI.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/normalisers/markdown"
)

// ErrNoDocumentService indicates that no document service was provided.
var ErrNoDocumentService = errors.New("document service not available")

// reservedLines covers the title, separator, scroll indicator and status bar.
const reservedLines = 7

// View shows one vault document with scrolling.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar

	documentService driving.DocumentService
	ctx             context.Context

	path         string
	back         messages.ViewType
	content      string
	modTime      time.Time
	lines        []string
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

// NewView creates a new document reader view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	return &View{
		styles:          s,
		keymap:          km,
		statusbar:       status.NewBar(s, "lines", km.ContentHelp()),
		documentService: documentService,
		ctx:             context.Background(),
		back:            messages.ViewMenu,
		width:           80,
		height:          24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open resets the view for path and returns a command loading it.
// Esc returns to back.
func (v *View) Open(path string, back messages.ViewType) tea.Cmd {
	v.path = path
	v.back = back
	v.content = ""
	v.modTime = time.Time{}
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
	v.statusbar.Busy("Loading " + path + "...")

	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentContentLoaded{Path: path, Err: ErrNoDocumentService}
		}
		doc, err := v.documentService.Get(v.ctx, path)
		return messages.DocumentContentLoaded{Path: path, Content: doc.Content, ModTime: doc.ModTime, Err: err}
	}
}

// Update handles messages for the reader view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentContentLoaded:
		if msg.Path != v.path {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			if errors.Is(msg.Err, domain.ErrNotFound) {
				v.err = fmt.Errorf("%s is no longer in the vault", msg.Path)
			}
			v.statusbar.Fail(v.err)
			return v, nil
		}
		v.err = nil
		v.content = msg.Content
		v.modTime = msg.ModTime
		v.wrapContent()
		v.statusbar.Results(len(v.lines))
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.Fail(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch key := msg.String(); {
	case keymap.Matches(key, v.keymap.Up):
		v.scrollTo(v.scrollOffset - 1)
	case keymap.Matches(key, v.keymap.Down):
		v.scrollTo(v.scrollOffset + 1)
	case keymap.Matches(key, v.keymap.PageUp):
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case keymap.Matches(key, v.keymap.PageDown):
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case key == "home" || key == "g":
		v.scrollTo(0)
	case key == "end" || key == "G":
		v.scrollTo(v.maxScrollOffset())
	case keymap.Matches(key, v.keymap.Back):
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}
	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// wrapContent splits the content into display lines no wider than the view.
func (v *View) wrapContent() {
	if v.content == "" {
		v.lines = nil
		return
	}

	width := max(v.width-4, 20)
	raw := strings.Split(strings.TrimRight(v.content, "\n"), "\n")
	v.lines = make([]string, 0, len(raw))
	for _, line := range raw {
		runes := []rune(line)
		for len(runes) > width {
			v.lines = append(v.lines, string(runes[:width]))
			runes = runes[width:]
		}
		v.lines = append(v.lines, string(runes))
	}
	v.scrollTo(v.scrollOffset)
}

func (v *View) visibleLines() int {
	return max(v.height-reservedLines, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the reader.
func (v *View) View() string {
	var b strings.Builder

	if v.path == "" {
		b.WriteString(v.styles.Title.Render("Document"))
	} else {
		b.WriteString(v.styles.Title.Render(markdown.Title(v.content, v.path)))
		b.WriteString("  ")
		b.WriteString(v.styles.Path.Render(v.path))
	}
	if !v.modTime.IsZero() {
		b.WriteString("  ")
		b.WriteString(v.styles.Muted.Render("modified " + v.modTime.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(strings.Repeat("─", min(max(v.width-4, 1), 60))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading content..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(empty document)"))
	default:
		b.WriteString(v.renderLines())
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) renderLines() string {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))

	rendered := make([]string, 0, end-v.scrollOffset+2)
	for i := v.scrollOffset; i < end; i++ {
		rendered = append(rendered, v.styles.Normal.Render(v.lines[i]))
	}
	if len(v.lines) > visible {
		percent := v.scrollOffset * 100 / v.maxScrollOffset()
		rendered = append(rendered, "", v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percent, v.scrollOffset+1, end, len(v.lines))))
	}
	return strings.Join(rendered, "\n")
}

// SetDimensions sets the view dimensions and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.statusbar.SetWidth(width)
	v.wrapContent()
}

// Path returns the document being shown.
func (v *View) Path() string {
	return v.path
}

// Content returns the raw document content.
func (v *View) Content() string {
	return v.content
}

// Lines returns the wrapped display lines.
func (v *View) Lines() []string {
	return v.lines
}

// ScrollOffset returns the first visible line index.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Back returns the view esc returns to.
func (v *View) Back() messages.ViewType {
	return v.back
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
