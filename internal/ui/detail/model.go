package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/newsreader/internal/keys"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/theme"
	"github.com/nhle/newsreader/internal/ui/emaillist"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// Model is the email detail view component.
type Model struct {
	email    *model.Email
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}
		case key.Matches(msg, m.keys.ToggleRead):
			return m, m.flagCmd(model.FlagRead)
		case key.Matches(msg, m.keys.ToggleFavorite):
			return m, m.flagCmd(model.FlagFavorite)
		case key.Matches(msg, m.keys.ToggleReadLater):
			return m, m.flagCmd(model.FlagReadLater)
		case key.Matches(msg, m.keys.Trash):
			cmd := m.flagCmd(model.FlagTrashed)
			return m, tea.Sequence(cmd, func() tea.Msg { return BackMsg{} })
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) flagCmd(flag model.Flag) tea.Cmd {
	if m.email == nil {
		return nil
	}
	e := *m.email
	value := !flag.Value(e)
	return func() tea.Msg {
		return emaillist.FlagRequestMsg{ID: e.ID, Flag: flag, Value: value}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.email == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No email selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}

	e := m.email
	var sections []string

	// Subject
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, titleStyle.Render(subject))
	sections = append(sections, theme.SenderStyle(e.DisplayName()).Render(e.DisplayName()))
	if badges := flagBadges(*e); badges != "" {
		sections = append(sections, badges)
	}
	sections = append(sections, "")

	// Metadata table
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if e.Sender != "" {
		sections = append(sections, fmt.Sprintf(
			"%s     %s",
			metaStyle.Render("From:"),
			valStyle.Render(e.Sender),
		))
	}
	if e.HasTimestamp() {
		sections = append(sections, fmt.Sprintf(
			"%s %s",
			metaStyle.Render("Received:"),
			valStyle.Render(e.ReceivedAt.Local().Format("2006-01-02 15:04")),
		))
	}
	if img := e.Thumbnail(); img != "" {
		sections = append(sections, fmt.Sprintf(
			"%s    %s",
			metaStyle.Render("Image:"),
			valStyle.Render(img),
		))
	}

	// Separator
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	body := e.Preview
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No preview")
	}
	sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(body))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func flagBadges(e model.Email) string {
	var parts []string
	if !e.Read {
		parts = append(parts, theme.FlagStyle("unread").Render("unread"))
	}
	if e.Favorite {
		parts = append(parts, theme.FlagStyle("favorite").Render("★ favorite"))
	}
	if e.ReadLater {
		parts = append(parts, theme.FlagStyle("read_later").Render("◷ read later"))
	}
	return strings.Join(parts, "  ")
}

// SetEmail updates the email being displayed and re-renders the content.
func (m *Model) SetEmail(e model.Email) {
	same := m.email != nil && m.email.ID == e.ID
	m.email = &e
	m.viewport.SetContent(m.renderContent())
	if !same {
		m.viewport.GotoTop()
	}
}

// Email returns the displayed email.
func (m Model) Email() (model.Email, bool) {
	if m.email == nil {
		return model.Email{}, false
	}
	return *m.email, true
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
