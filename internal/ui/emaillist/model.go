package emaillist

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/keys"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
	"github.com/nhle/newsreader/internal/theme"
)

// SelectedEmailMsg is sent when the user opens an email.
type SelectedEmailMsg struct {
	Email model.Email
}

// FlagRequestMsg asks the parent to change a flag on an email.
type FlagRequestMsg struct {
	ID    string
	Flag  model.Flag
	Value bool
}

// MoreRequestMsg asks the parent to load the next batch of pages.
type MoreRequestMsg struct{}

// prefetchDistance is how close to the end of the list the cursor may get
// before the next batch is requested.
const prefetchDistance = 5

// Model is the email list of the active view.
type Model struct {
	list     list.Model
	keys     *keys.KeyMap
	snapshot inbox.Snapshot
	width    int
	height   int
}

// New creates a new email list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetSnapshot replaces the displayed items, keeping the selection on the
// same email when it is still present.
func (m *Model) SetSnapshot(s inbox.Snapshot) tea.Cmd {
	selected, hadSelection := m.SelectedEmail()
	sameView := s.View == m.snapshot.View
	m.snapshot = s

	items := make([]list.Item, len(s.Items))
	keep := -1
	for i, e := range s.Items {
		items[i] = EmailItem{Email: e}
		if hadSelection && sameView && e.ID == selected.ID {
			keep = i
		}
	}
	cmd := m.list.SetItems(items)

	switch {
	case keep >= 0:
		m.list.Select(keep)
	case !sameView:
		m.list.Select(0)
	case m.list.Index() >= len(items) && len(items) > 0:
		m.list.Select(len(items) - 1)
	}
	return cmd
}

// Snapshot returns the snapshot currently displayed.
func (m Model) Snapshot() inbox.Snapshot {
	return m.snapshot
}

// SelectedEmail returns the email under the cursor.
func (m Model) SelectedEmail() (model.Email, bool) {
	item, ok := m.list.SelectedItem().(EmailItem)
	if !ok {
		return model.Email{}, false
	}
	return item.Email, true
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the email list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	e, hasSelection := m.SelectedEmail()

	switch {
	case key.Matches(msg, m.keys.Select):
		if !hasSelection {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedEmailMsg{Email: e} }

	case key.Matches(msg, m.keys.More):
		m.list.Select(len(m.list.Items()) - 1)
		return m, m.requestMore()

	case key.Matches(msg, m.keys.ToggleRead):
		return m, flagCmd(e, hasSelection, model.FlagRead)

	case key.Matches(msg, m.keys.ToggleFavorite):
		return m, flagCmd(e, hasSelection, model.FlagFavorite)

	case key.Matches(msg, m.keys.ToggleReadLater):
		return m, flagCmd(e, hasSelection, model.FlagReadLater)

	case key.Matches(msg, m.keys.Trash):
		return m, flagCmd(e, hasSelection, model.FlagTrashed)
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if len(m.list.Items())-m.list.Index() <= prefetchDistance {
		return m, tea.Batch(cmd, m.requestMore())
	}
	return m, cmd
}

// requestMore returns a MoreRequestMsg command when the view can grow and
// no catch-up loop is running.
func (m Model) requestMore() tea.Cmd {
	s := m.snapshot
	if s.State != inbox.StateReady || !s.HasMore || s.BackgroundLoading {
		return nil
	}
	return func() tea.Msg { return MoreRequestMsg{} }
}

func flagCmd(e model.Email, ok bool, flag model.Flag) tea.Cmd {
	if !ok {
		return nil
	}
	value := !flag.Value(e)
	return func() tea.Msg {
		return FlagRequestMsg{ID: e.ID, Flag: flag, Value: value}
	}
}

// View renders the email list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows a loading, error or empty message.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	s := m.snapshot
	switch {
	case s.State == inbox.StateLoadingInitial:
		return style.Render("Loading…")
	case s.Err != nil && source.IsAuthError(s.Err):
		return style.Render(theme.ErrorStyle.Render("Authentication failed.") +
			"\n\nRun 'newsreader configure' to update your credentials.")
	case s.Err != nil:
		return style.Render(theme.ErrorStyle.Render(errorLine(s.Err)) + "\n\nPress r to retry.")
	case s.View == "":
		return style.Render("")
	default:
		if label := viewLabel(s.View); label != "" {
			return style.Render(fmt.Sprintf("No %s emails.", label))
		}
		return style.Render("No emails.")
	}
}

func errorLine(err error) string {
	if errors.Is(err, inbox.ErrInitialLoad) {
		return "Could not load this view."
	}
	return err.Error()
}

var viewLabels = map[model.View]string{
	model.ViewUnread:    "unread",
	model.ViewRead:      "read",
	model.ViewFavorites: "favorite",
	model.ViewReadLater: "read-later",
}

func viewLabel(v model.View) string {
	return viewLabels[v]
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
