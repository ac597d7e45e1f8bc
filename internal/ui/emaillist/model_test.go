package emaillist

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/keys"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

func emails(n int) []model.Email {
	out := make([]model.Email, n)
	for i := range out {
		out[i] = model.Email{
			ID:         string(rune('a' + i)),
			Subject:    "Issue",
			Sender:     "Letter <l@example.com>",
			ReceivedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func ready(view model.View, items []model.Email) inbox.Snapshot {
	return inbox.Snapshot{View: view, Items: items, State: inbox.StateReady}
}

func TestModel_SetSnapshotKeepsSelection(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	items := emails(5)
	m.SetSnapshot(ready(model.ViewUnread, items))
	m.list.Select(3)

	// "a" disappears; "d" is now at index 2.
	m.SetSnapshot(ready(model.ViewUnread, items[1:]))
	e, ok := m.SelectedEmail()
	require.True(t, ok)
	assert.Equal(t, "d", e.ID)

	m.SetSnapshot(ready(model.ViewRead, items))
	e, _ = m.SelectedEmail()
	assert.Equal(t, "a", e.ID, "view switch resets the cursor")
}

func TestModel_FlagKeys(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	items := emails(2)
	items[0].Favorite = true
	m.SetSnapshot(ready(model.ViewAll, items))

	tests := []struct {
		key   string
		flag  model.Flag
		value bool
	}{
		{"m", model.FlagRead, true},
		{"f", model.FlagFavorite, false},
		{"l", model.FlagReadLater, true},
		{"d", model.FlagTrashed, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, cmd := m.Update(keyMsg(tt.key))
			require.NotNil(t, cmd)
			assert.Equal(t, FlagRequestMsg{ID: "a", Flag: tt.flag, Value: tt.value}, cmd())
		})
	}
}

func TestModel_SelectEmitsEmail(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetSnapshot(ready(model.ViewAll, emails(1)))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(SelectedEmailMsg)
	require.True(t, ok)
	assert.Equal(t, "a", msg.Email.ID)
}

func TestModel_RequestMore(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	s := ready(model.ViewAll, emails(3))
	s.HasMore = true
	m.SetSnapshot(s)

	_, cmd := m.Update(keyMsg("G"))
	require.NotNil(t, cmd)
	assert.Equal(t, MoreRequestMsg{}, cmd())

	s.BackgroundLoading = true
	m.SetSnapshot(s)
	_, cmd = m.Update(keyMsg("G"))
	assert.Nil(t, cmd, "the catch-up loop already owns pagination")
}

func TestModel_EmptyStates(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)

	m.SetSnapshot(inbox.Snapshot{View: model.ViewUnread, State: inbox.StateLoadingInitial})
	assert.Contains(t, m.View(), "Loading")

	m.SetSnapshot(inbox.Snapshot{View: model.ViewUnread, Err: inbox.ErrInitialLoad})
	assert.Contains(t, m.View(), "Press r to retry")

	m.SetSnapshot(inbox.Snapshot{View: model.ViewUnread, Err: &source.AuthError{Remote: "api", Message: "401"}})
	assert.Contains(t, m.View(), "configure")

	m.SetSnapshot(ready(model.ViewFavorites, nil))
	assert.Contains(t, m.View(), "No favorite emails.")

	m.SetSnapshot(ready(model.ViewAll, nil))
	assert.Contains(t, m.View(), "No emails.")
	assert.False(t, strings.Contains(m.View(), "No  emails"))

	assert.Equal(t, "boom", errorLine(errors.New("boom")))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "", relativeTime(time.Time{}, now))
	assert.Equal(t, "just now", relativeTime(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", relativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-48*time.Hour), now))
	assert.Equal(t, "Feb 01", relativeTime(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "Dec 24 2025", relativeTime(time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC), now))
}

func TestRenderLine(t *testing.T) {
	d := ItemDelegate{now: func() time.Time { return time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC) }}
	e := emails(1)[0]
	e.NewsletterName = "Morning Brew"
	e.Favorite = true

	line := d.renderLine(e, false, 100)
	assert.Contains(t, line, "Morning Brew")
	assert.Contains(t, line, "Issue")
	assert.Contains(t, line, "★")
	assert.Contains(t, line, "5m ago")
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
