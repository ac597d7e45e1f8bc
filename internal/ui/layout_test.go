package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/newsreader/internal/model"
)

func TestLayout_ContentHeight(t *testing.T) {
	assert.Equal(t, 21, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 0, NewLayout(80, 2).ContentHeight())
}

func TestLayout_RenderTabs(t *testing.T) {
	out := NewLayout(120, 24).RenderTabs(model.Views, model.ViewAll)
	for i, label := range []string{"1 Unread", "2 Read", "3 All", "4 Favorites", "5 Read later"} {
		assert.True(t, strings.Contains(out, label), "tab %d", i)
	}
}

func TestLayout_RenderWithFrame(t *testing.T) {
	l := NewLayout(40, 10)
	out := l.RenderWithFrame("header", "tabs", "content", "status")
	assert.Equal(t, 10, lipgloss.Height(out))
}
