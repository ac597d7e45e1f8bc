package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/keys"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/ui/emaillist"
)

func TestModel_RendersEmail(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	assert.Contains(t, m.View(), "No email selected")

	m.SetEmail(model.Email{
		ID:             "e1",
		Subject:        "Tuesday edition",
		Sender:         "Morning Brew <crew@morningbrew.com>",
		NewsletterName: "Morning Brew",
		Preview:        "Markets rallied today.",
		ReceivedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Favorite:       true,
		FirstImage:     "https://cdn.example.com/hero.png",
	})

	out := m.View()
	assert.Contains(t, out, "Tuesday edition")
	assert.Contains(t, out, "Morning Brew")
	assert.Contains(t, out, "Markets rallied today.")
	assert.Contains(t, out, "https://cdn.example.com/hero.png")
	assert.Contains(t, out, "favorite")
}

func TestModel_FlagKeys(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetEmail(model.Email{ID: "e1", Read: true})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("m")})
	require.NotNil(t, cmd)
	assert.Equal(t, emaillist.FlagRequestMsg{ID: "e1", Flag: model.FlagRead, Value: false}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
