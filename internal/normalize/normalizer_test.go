package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/source"
	"github.com/nhle/newsreader/internal/store"
)

func TestNormalize_SnakeCase(t *testing.T) {
	n := New(cache.NewManager(), 0, nil)

	e := n.Normalize(source.RawEmail{
		"id":              "e1",
		"sender":          "Morning Brew <Crew@MorningBrew.com>",
		"subject":         "  Today's brew ",
		"preview":         "Coffee   and\nnews",
		"received_at":     "2026-03-01T07:00:00Z",
		"is_read":         true,
		"is_favorite":     false,
		"is_read_later":   true,
		"newsletter_logo": "https://cdn.example.com/brew.png",
	})

	assert.Equal(t, "e1", e.ID)
	assert.Equal(t, "crew@morningbrew.com", e.SenderAddress)
	assert.Equal(t, "Today's brew", e.Subject)
	assert.Equal(t, "Coffee and news", e.Preview)
	assert.Equal(t, time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC), e.ReceivedAt)
	assert.True(t, e.Read)
	assert.False(t, e.Favorite)
	assert.True(t, e.ReadLater)
	assert.Equal(t, "Morning Brew", e.NewsletterName)
	assert.Equal(t, "https://cdn.example.com/brew.png", e.Thumbnail())
}

func TestNormalize_CamelCaseFallback(t *testing.T) {
	n := New(nil, 0, nil)

	e := n.Normalize(source.RawEmail{
		"id":          float64(42),
		"from":        "news@thehustle.co",
		"fromAddress": "news@thehustle.co",
		"receivedAt":  "Sun, 01 Mar 2026 09:30:00 +0000",
		"isRead":      false,
		"isFavorite":  true,
		"htmlBody":    `<html><head><style>p{color:red}</style></head><body><p>Hello &amp; welcome</p></body></html>`,
	})

	assert.Equal(t, "42", e.ID)
	assert.True(t, e.Favorite)
	assert.False(t, e.Read)
	assert.Equal(t, "Hello & welcome", e.Preview)
	assert.Equal(t, "Thehustle", e.NewsletterName)
	assert.True(t, e.HasTimestamp())
}

func TestNormalize_SnakeCaseWins(t *testing.T) {
	e := New(nil, 0, nil).Normalize(source.RawEmail{
		"id": "x", "is_read": false, "isRead": true,
	})
	assert.False(t, e.Read)
}

func TestNormalize_MalformedRecord(t *testing.T) {
	e := New(nil, 0, nil).Normalize(source.RawEmail{
		"id":          "m1",
		"sender":      []any{"not", "a", "string"},
		"received_at": "sometime",
		"is_read":     map[string]any{},
	})

	assert.Equal(t, "m1", e.ID)
	assert.Empty(t, e.Sender)
	assert.False(t, e.HasTimestamp())
	assert.False(t, e.Read)
	assert.Empty(t, e.NewsletterName)
}

func TestNormalizeAll_DropsRecordsWithoutID(t *testing.T) {
	out := New(nil, 0, nil).NormalizeAll([]source.RawEmail{
		{"id": "a"}, {"subject": "orphan"}, {"id": "b"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestNormalize_SenderCache(t *testing.T) {
	durable := store.NewMemoryStore(0)
	m := cache.NewManager(cache.WithDurable(durable))
	n := New(m, time.Hour, nil)

	// An explicit name teaches the cache.
	n.Normalize(source.RawEmail{
		"id": "1", "sender": "noreply@stratechery.com", "newsletter_name": "Stratechery",
		"newsletter_logo": "https://stratechery.com/logo.png",
	})

	// Later records without the field reuse it.
	e := n.Normalize(source.RawEmail{"id": "2", "sender": "noreply@stratechery.com"})
	assert.Equal(t, "Stratechery", e.NewsletterName)
	assert.Equal(t, "https://stratechery.com/logo.png", e.NewsletterLogo)

	// The mapping is durable and survives a new manager.
	reloaded := New(cache.NewManager(cache.WithDurable(durable)), time.Hour, nil)
	e = reloaded.Normalize(source.RawEmail{"id": "3", "sender": "noreply@stratechery.com"})
	assert.Equal(t, "Stratechery", e.NewsletterName)

	info, ok := cache.Get[SenderInfo](m, "sender:noreply@stratechery.com")
	require.True(t, ok)
	assert.Equal(t, "Stratechery", info.Name)
}

func TestNormalize_FirstImageFromContent(t *testing.T) {
	e := New(nil, 0, nil).Normalize(source.RawEmail{
		"id": "i",
		"html_body": `<img src="https://cdn.example.com/logo.png">
			<img src="https://t.example.com/open.gif" width="1" height="1">
			<img src="https://cdn.example.com/story.jpg" alt="Story">`,
	})
	assert.Equal(t, "https://cdn.example.com/story.jpg", e.FirstImage)
	assert.Equal(t, "https://cdn.example.com/story.jpg", e.Thumbnail())
}

func TestTruncate(t *testing.T) {
	long := ""
	for range 300 {
		long += "é"
	}
	got := preview("", long, "")
	assert.Equal(t, previewRunes, len([]rune(got)))
	assert.Equal(t, "short", truncate("short", 10))
}
