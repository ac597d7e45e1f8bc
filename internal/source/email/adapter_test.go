package email

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/model"
)

type fakeMailbox struct {
	uids     []imap.UID
	messages map[imap.UID]Message
	criteria *imap.SearchCriteria

	stored  []imap.Flag
	add     bool
	trashed uint32
}

func (f *fakeMailbox) SearchUIDs(_ context.Context, c *imap.SearchCriteria) ([]imap.UID, error) {
	f.criteria = c
	return f.uids, nil
}

func (f *fakeMailbox) FetchMessages(_ context.Context, uids []imap.UID) ([]Message, error) {
	var out []Message
	for _, u := range uids {
		out = append(out, f.messages[u])
	}
	// Servers return messages in ascending UID order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (f *fakeMailbox) SetFlags(_ context.Context, _ uint32, flags []imap.Flag, add bool) error {
	f.stored, f.add = flags, add
	return nil
}

func (f *fakeMailbox) MoveToTrash(_ context.Context, uid uint32) error {
	f.trashed = uid
	return nil
}

func (f *fakeMailbox) Status(context.Context) (uint32, uint32, error) {
	return 10, 3, nil
}

func newFakeMailbox(n int) *fakeMailbox {
	f := &fakeMailbox{messages: make(map[imap.UID]Message)}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		uid := imap.UID(i)
		f.uids = append(f.uids, uid)
		f.messages[uid] = Message{Envelope: Envelope{
			UID:         uint32(i),
			Subject:     "Issue",
			From:        "Weekly <news@example.com>",
			FromAddress: "news@example.com",
			Date:        base.Add(time.Duration(i) * time.Hour),
			Flags:       []string{string(imap.FlagSeen)},
		}}
	}
	return f
}

func TestAdapter_FetchPageNewestFirst(t *testing.T) {
	box := newFakeMailbox(5)
	a := newAdapter(box, 2)

	items, err := a.FetchPage(t.Context(), 1, model.ViewRead, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "5", items[0].String("id"))
	assert.Equal(t, "4", items[1].String("id"))
	assert.True(t, items[0].Bool("isRead"))
	assert.Equal(t, []imap.Flag{imap.FlagSeen}, box.criteria.Flag)

	items, err = a.FetchPage(t.Context(), 3, model.ViewRead, false)
	require.NoError(t, err)
	require.Len(t, items, 1, "short last page")
	assert.Equal(t, "1", items[0].String("id"))

	items, err = a.FetchPage(t.Context(), 4, model.ViewRead, false)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestViewCriteria(t *testing.T) {
	unread := viewCriteria(model.ViewUnread)
	assert.ElementsMatch(t, []imap.Flag{imap.FlagDeleted, imap.FlagSeen}, unread.NotFlag)
	assert.Empty(t, unread.Flag)

	assert.Equal(t, []imap.Flag{flagReadLater}, viewCriteria(model.ViewReadLater).Flag)
	assert.Equal(t, []imap.Flag{imap.FlagFlagged}, viewCriteria(model.ViewFavorites).Flag)
	assert.Empty(t, viewCriteria(model.ViewAll).Flag)
}

func TestAdapter_SetFlag(t *testing.T) {
	box := newFakeMailbox(1)
	a := newAdapter(box, 20)

	require.NoError(t, a.SetFlag(t.Context(), "1", model.FlagReadLater, true))
	assert.Equal(t, []imap.Flag{flagReadLater}, box.stored)
	assert.True(t, box.add)

	require.NoError(t, a.SetFlag(t.Context(), "1", model.FlagRead, false))
	assert.Equal(t, []imap.Flag{imap.FlagSeen}, box.stored)
	assert.False(t, box.add)

	require.NoError(t, a.SetFlag(t.Context(), "1", model.FlagTrashed, true))
	assert.Equal(t, uint32(1), box.trashed)

	assert.Error(t, a.SetFlag(t.Context(), "1", model.FlagTrashed, false))
	assert.Error(t, a.SetFlag(t.Context(), "not-a-uid", model.FlagRead, true))
}

func TestAdapter_Counts(t *testing.T) {
	counts, err := newAdapter(newFakeMailbox(0), 20).Counts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, model.Counts{Unread: 3, Read: 7, Total: 10}, counts)
}

func TestParseMIMEBody(t *testing.T) {
	raw := "From: Weekly <news@example.com>\r\n" +
		"Subject: Issue 12\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Plain body\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>HTML <img src=\"https://cdn.example.com/hero.jpg\"></p>\r\n" +
		"--XYZ--\r\n"

	text, html := parseMIMEBody([]byte(raw))
	assert.Contains(t, text, "Plain body")
	assert.Contains(t, html, "hero.jpg")
}

func TestMessageToRaw_OmitsMissingDate(t *testing.T) {
	raw := messageToRaw(Message{Envelope: Envelope{UID: 9}})
	_, ok := raw.First("receivedAt")
	assert.False(t, ok)
	assert.Equal(t, "9", raw.String("id"))
}
