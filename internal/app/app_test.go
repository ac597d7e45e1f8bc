package app

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/model"
	syncer "github.com/nhle/newsreader/internal/sync"
	"github.com/nhle/newsreader/internal/ui/emaillist"
	"github.com/nhle/newsreader/tests/testutil"
)

func newTestModel(t *testing.T, remote *testutil.FakeRemote) Model {
	t.Helper()
	cm := cache.NewManager()
	cfg := inbox.DefaultConfig()
	cfg.BatchDelay = 0
	p := inbox.New(remote, nil, cm, cfg)
	t.Cleanup(func() {
		p.Close()
		cm.Close()
	})
	return New(p, cm, model.ViewUnread, nil)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(Model)
	require.True(t, ok)
	return mm, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_ActivateShowsItems(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(7))
	m := newTestModel(t, remote)

	m, _ = update(t, m, m.activate(model.ViewUnread)())
	snap := m.list.Snapshot()
	assert.Equal(t, model.ViewUnread, snap.View)
	assert.Len(t, snap.Items, 7)
	assert.Equal(t, inbox.StateReady, snap.State)
}

func TestApp_ViewKeysSwitchView(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(3))
	m := newTestModel(t, remote)
	m, _ = update(t, m, m.activate(model.ViewUnread)())

	m, cmd := update(t, m, runes("3"))
	require.NotNil(t, cmd)
	assert.Equal(t, model.ViewAll, m.active)

	msg, ok := cmd().(activatedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	m, _ = update(t, m, msg)
	assert.Equal(t, model.ViewAll, m.list.Snapshot().View)

	_, cmd = update(t, m, runes("3"))
	assert.Nil(t, cmd, "already active")
}

func TestApp_OpeningUnreadEmailMarksItRead(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(3))
	m := newTestModel(t, remote)
	m, _ = update(t, m, m.activate(model.ViewUnread)())

	e, ok := m.list.SelectedEmail()
	require.True(t, ok)

	m, cmd := update(t, m, emaillist.SelectedEmailMsg{Email: e})
	assert.Equal(t, ViewDetail, m.currentView)
	require.NotNil(t, cmd)

	res, ok := cmd().(flagResultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	assert.Equal(t, []testutil.FlagCall{{ID: e.ID, Flag: model.FlagRead, Value: true}}, remote.FlagCalls())

	snap := m.pipeline.Snapshot(model.ViewUnread)
	assert.Len(t, snap.Items, 2, "read email leaves the unread view")
}

func TestApp_FlagFailureShowsError(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(1))
	m := newTestModel(t, remote)

	m, _ = update(t, m, flagResultMsg{id: "m-001", flag: model.FlagFavorite, err: errors.New("forbidden")})
	assert.True(t, m.failure)
	assert.Contains(t, m.keyHints(), "forbidden")
}

func TestApp_CommandPalette(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(1))
	m := newTestModel(t, remote)

	cmd := m.executeCommand("view favorites")
	require.NotNil(t, cmd)
	assert.Equal(t, model.ViewFavorites, m.active)

	assert.Nil(t, m.executeCommand("bogus"))
	assert.True(t, m.failure)

	assert.Nil(t, m.executeCommand("help"))
	assert.Equal(t, ViewHelp, m.currentView)
}

func TestApp_View(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(2))
	m := newTestModel(t, remote)
	assert.Equal(t, "Loading...", m.View())

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	m, _ = update(t, m, m.activate(model.ViewUnread)())
	m.counts = model.Counts{Unread: 2, Total: 2}

	out := m.View()
	assert.Contains(t, out, "Newsreader [2 unread / 2]")
	assert.Contains(t, out, "1 Unread")
	assert.Contains(t, out, "Issue 1")
}

func TestApp_UpdateMsgIgnoresOtherViews(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(2))
	m := newTestModel(t, remote)
	m, _ = update(t, m, m.activate(model.ViewUnread)())

	other := inbox.Snapshot{View: model.ViewRead, State: inbox.StateReady, LastUpdated: time.Now()}
	m, cmd := update(t, m, inbox.UpdateMsg{Snapshot: other})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, model.ViewUnread, m.list.Snapshot().View)
}

func TestApp_SyncResult(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(2))
	m := newTestModel(t, remote)
	m = m.WithPoller(syncer.New(m.pipeline, time.Hour, nil))

	m, cmd := update(t, m, syncer.SyncResultMsg{Counts: model.Counts{Unread: 3, Total: 3}, NewCount: 1})
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, 3, m.counts.Total)
	assert.Equal(t, "1 new", m.status)

	m, _ = update(t, m, syncer.SyncResultMsg{Error: errors.New("offline")})
	assert.True(t, m.failure)
	assert.Contains(t, m.keyHints(), "offline")
}
