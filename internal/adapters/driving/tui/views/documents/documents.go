// Package documents provides the vault document list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/recall/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// ErrNoDocumentService indicates that no document service was provided.
var ErrNoDocumentService = errors.New("document service not available")

// Action is an operation offered on the selected document.
type Action string

const (
	ActionShowContent Action = "Show Content"
	ActionReindex     Action = "Re-index"
	ActionCancel      Action = "Cancel"
)

// reservedLines covers the title, status bar and padding.
const reservedLines = 7

// View lists vault documents with their indexing state.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar

	documentService driving.DocumentService
	indexService    driving.IndexService
	ctx             context.Context

	documents    []domain.DocumentInfo
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
	pendingNote  string

	actions      []Action
	showingMenu  bool
	menuSelected int
}

// NewView creates a new documents view. indexService may be nil, in which
// case re-indexing is not offered.
func NewView(s *styles.Styles, documentService driving.DocumentService, indexService driving.IndexService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	actions := []Action{ActionShowContent}
	if indexService != nil {
		actions = append(actions, ActionReindex)
	}
	actions = append(actions, ActionCancel)

	return &View{
		styles:          s,
		keymap:          km,
		statusbar:       status.NewBar(s, "documents", km.DocumentsHelp()),
		documentService: documentService,
		indexService:    indexService,
		ctx:             context.Background(),
		actions:         actions,
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

// Load marks the view as loading and returns a command listing the vault.
func (v *View) Load() tea.Cmd {
	v.loading = true
	v.err = nil
	v.statusbar.Busy("Loading vault...")
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := v.documentService.List(v.ctx)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.showingMenu {
			return v.handleMenuKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.handleLoaded(msg)
		return v, nil

	case messages.DocumentReindexed:
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.Fail(fmt.Errorf("%s: %w", msg.Path, msg.Err))
			return v, nil
		}
		note := fmt.Sprintf("%s: %d chunks", msg.Path, msg.Chunks)
		if msg.Chunks == 0 {
			note = msg.Path + ": removed from index"
		}
		v.pendingNote = note
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.Fail(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleLoaded(msg messages.DocumentsLoaded) {
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.Fail(msg.Err)
		return
	}

	v.err = nil
	v.documents = msg.Documents
	if v.selected >= len(v.documents) {
		v.selected = max(len(v.documents)-1, 0)
	}
	v.adjustScroll()
	v.statusbar.Results(len(v.documents))
	if v.pendingNote != "" {
		v.statusbar.Note(v.pendingNote)
		v.pendingNote = ""
	}
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch key := msg.String(); {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Select):
		if len(v.documents) > 0 {
			v.showingMenu = true
			v.menuSelected = 0
		}
	case keymap.Matches(key, v.keymap.Reload):
		return v, v.Load()
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) handleMenuKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch key := msg.String(); {
	case keymap.Matches(key, v.keymap.Up):
		if v.menuSelected > 0 {
			v.menuSelected--
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.menuSelected < len(v.actions)-1 {
			v.menuSelected++
		}
	case keymap.Matches(key, v.keymap.Select):
		v.showingMenu = false
		return v, v.execute(v.actions[v.menuSelected])
	case keymap.Matches(key, v.keymap.Back):
		v.showingMenu = false
	}
	return v, nil
}

func (v *View) execute(action Action) tea.Cmd {
	doc := v.SelectedDocument()
	if doc == nil {
		return nil
	}
	path := doc.Path

	switch action {
	case ActionShowContent:
		return func() tea.Msg {
			return messages.DocumentSelected{Path: path, Back: messages.ViewDocuments}
		}
	case ActionReindex:
		v.statusbar.Busy("Re-indexing " + path + "...")
		return func() tea.Msg {
			chunks, err := v.indexService.IndexDocument(v.ctx, path)
			return messages.DocumentReindexed{Path: path, Chunks: chunks, Err: err}
		}
	case ActionCancel:
	}
	return nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	switch {
	case v.selected < v.scrollOffset:
		v.scrollOffset = v.selected
	case v.selected >= v.scrollOffset+visible:
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-reservedLines, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	indexed := 0
	for _, d := range v.documents {
		if d.Indexed {
			indexed++
		}
	}
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d, %d indexed)", len(v.documents), indexed)))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil && len(v.documents) == 0:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("The vault has no markdown documents."))
	case v.showingMenu:
		b.WriteString(v.renderActionMenu())
	default:
		b.WriteString(v.renderList())
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) renderList() string {
	visible := v.visibleItemCount()
	end := min(v.scrollOffset+visible, len(v.documents))

	lines := make([]string, 0, end-v.scrollOffset+2)
	for i := v.scrollOffset; i < end; i++ {
		lines = append(lines, v.renderDocument(i, v.documents[i]))
	}
	if len(v.documents) > visible {
		lines = append(lines, "", v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			v.scrollOffset+1, end, len(v.documents))))
	}
	return strings.Join(lines, "\n")
}

func (v *View) renderDocument(index int, doc domain.DocumentInfo) string {
	marker := "○"
	if doc.Indexed {
		marker = "●"
	}
	path := list.Truncate(doc.Path, max(v.width-8, 10))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %s %s", marker, path))
	}
	markerStyle := v.styles.Muted
	if doc.Indexed {
		markerStyle = v.styles.Success
	}
	return "  " + markerStyle.Render(marker) + " " + v.styles.Normal.Render(path)
}

func (v *View) renderActionMenu() string {
	var b strings.Builder
	if doc := v.SelectedDocument(); doc != nil {
		b.WriteString(v.styles.Subtitle.Render("Actions for: " + doc.Path))
		b.WriteString("\n\n")
	}
	for i, action := range v.actions {
		if i == v.menuSelected {
			b.WriteString(v.styles.Selected.Render("> " + string(action)))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + string(action)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.statusbar.SetWidth(width)
	v.adjustScroll()
}

// Documents returns the current listing.
func (v *View) Documents() []domain.DocumentInfo {
	return v.documents
}

// SelectedIndex returns the selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the selected document, or nil if the list is empty.
func (v *View) SelectedDocument() *domain.DocumentInfo {
	if v.selected < 0 || v.selected >= len(v.documents) {
		return nil
	}
	return &v.documents[v.selected]
}

// Actions returns the actions offered on a document.
func (v *View) Actions() []Action {
	return v.actions
}

// IsShowingMenu reports whether the action menu is visible.
func (v *View) IsShowingMenu() bool {
	return v.showingMenu
}

// Loading reports whether a listing is in flight.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
