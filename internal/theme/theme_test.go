package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSenderStyle_Stable(t *testing.T) {
	a := SenderStyle("Morning Brew").GetForeground()
	b := SenderStyle("Morning Brew").GetForeground()
	assert.Equal(t, a, b)
}

func TestFlagStyle(t *testing.T) {
	assert.Equal(t, ColorYellow, FlagStyle("favorite").GetForeground())
	assert.Equal(t, ColorGray, FlagStyle("other").GetForeground())
	assert.True(t, TabStyle(true).GetBold())
	assert.False(t, TabStyle(false).GetBold())
}
