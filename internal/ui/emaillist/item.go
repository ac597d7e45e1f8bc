package emaillist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/theme"
)

// EmailItem wraps a model.Email so it can be used in a bubbles/list.
type EmailItem struct {
	Email model.Email
}

// FilterValue returns the string used for fuzzy filtering.
func (i EmailItem) FilterValue() string {
	return i.Email.DisplayName() + " " + i.Email.Subject
}

// Title returns the subject for the list.
func (i EmailItem) Title() string { return i.Email.Subject }

// Description returns the preview line for the list.
func (i EmailItem) Description() string { return i.Email.Preview }

// ItemDelegate implements list.ItemDelegate for rendering emails.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(EmailItem)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(ei.Email, index == m.Index(), m.Width()))
}

func (d ItemDelegate) renderLine(e model.Email, selected bool, width int) string {
	now := time.Now
	if d.now != nil {
		now = d.now
	}

	marker := " "
	if !e.Read {
		marker = theme.FlagStyle("unread").Render("●")
	}
	flags := ""
	if e.Favorite {
		flags += theme.FlagStyle("favorite").Render("★")
	}
	if e.ReadLater {
		flags += theme.FlagStyle("read_later").Render("◷")
	}
	if flags != "" {
		flags = " " + flags
	}

	sender := theme.SenderStyle(e.DisplayName()).Render(truncate(e.DisplayName(), 24))
	when := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(e.ReceivedAt, now()))

	subject := e.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	// Leave room for marker, sender, flags and time.
	room := width - lipgloss.Width(sender) - lipgloss.Width(when) - lipgloss.Width(flags) - 8
	if room > 0 {
		subject = truncate(subject, room)
	}
	if e.Read {
		subject = theme.DimmedStyle.Render(subject)
	}

	line := fmt.Sprintf("%s %s  %s%s  %s", marker, sender, subject, flags, when)
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case t.Year() == now.Year():
		return t.Format("Jan 02")
	default:
		return t.Format("Jan 02 2006")
	}
}
