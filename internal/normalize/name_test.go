package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"Morning Brew <crew@morningbrew.com>", "Morning Brew"},
		{`"The Hustle" <news@thehustle.co>`, "The Hustle"},
		{"Newsletter - money stuff <noreply@bloomberg.net>", "Money Stuff"},
		{"Newsletter | TLDR <dan@tldrnewsletter.com>", "TLDR"},
		{"noreply@substack.com", "Substack"},
		{"no-reply@news.bbc.co.uk", "Bbc"},
		{"lenny.rachitsky@substack.com", "Lenny Rachitsky"},
		{"Newsletter <hello@dense-discovery.com>", "Dense Discovery"},
		{"platformer", "Platformer"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.sender))
		})
	}
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "crew@morningbrew.com", senderAddress("Morning Brew <Crew@MorningBrew.com>"))
	assert.Equal(t, "a@b.io", senderAddress("a@b.io"))
	assert.Equal(t, "x@y.z", senderAddress("Broken <<x@y.z>"))
	assert.Equal(t, "", senderAddress("Just a name"))
}
