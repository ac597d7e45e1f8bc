package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
	"github.com/nhle/newsreader/tests/testutil"
)

func newTestPipeline(t *testing.T, remote *testutil.FakeRemote) *inbox.Pipeline {
	t.Helper()
	cfg := inbox.DefaultConfig()
	cfg.BatchDelay = time.Millisecond
	cfg.ResumeOnActivate = false
	p := inbox.New(remote, nil, cache.NewManager(), cfg)
	t.Cleanup(p.Close)
	return p
}

func drain(p *Poller) SyncResultMsg {
	return p.waitForResult()().(SyncResultMsg)
}

func TestPoll_FirstPollSetsBaseline(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(5))
	pl := newTestPipeline(t, remote)
	p := New(pl, time.Hour, nil)

	p.poll()
	msg := drain(p)

	require.NoError(t, msg.Error)
	assert.Equal(t, 5, msg.Counts.Total)
	assert.Zero(t, msg.NewCount)
	assert.Equal(t, SyncIdle, p.Status().State)
	assert.False(t, p.Status().LastSync.IsZero())
}

func TestPoll_NewMailRefreshesActiveView(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(5))
	pl := newTestPipeline(t, remote)
	_, err := pl.Activate(context.Background(), model.ViewUnread)
	require.NoError(t, err)

	p := New(pl, time.Hour, nil)
	p.poll()
	drain(p)

	remote.Deliver(source.RawEmail{
		"id":          "new-1",
		"sender":      "Fresh <fresh@example.com>",
		"subject":     "Hot off the press",
		"received_at": "2026-03-02T08:00:00Z",
	})
	p.poll()
	msg := drain(p)

	require.NoError(t, msg.Error)
	assert.Equal(t, 1, msg.NewCount)
	snap := pl.Snapshot(model.ViewUnread)
	require.NotEmpty(t, snap.Items)
	assert.Equal(t, "new-1", snap.Items[0].ID)
}

func TestPoll_ErrorIsReported(t *testing.T) {
	remote := testutil.NewFakeRemote(20, nil)
	remote.FailCounts(&source.AuthError{Message: "expired"})
	p := New(newTestPipeline(t, remote), time.Hour, nil)

	p.poll()
	msg := drain(p)

	require.Error(t, msg.Error)
	assert.True(t, msg.AuthError)
	assert.Equal(t, SyncError, p.Status().State)
	assert.True(t, errors.Is(p.Status().Error, msg.Error))
}

func TestStartStop(t *testing.T) {
	remote := testutil.NewFakeRemote(20, testutil.Mailbox(3))
	p := New(newTestPipeline(t, remote), time.Hour, nil)

	wait := p.Start()
	require.NotNil(t, wait)
	assert.Nil(t, p.Start(), "second start is a no-op")

	p.Trigger()
	msg := wait().(SyncResultMsg)
	assert.Equal(t, 3, msg.Counts.Total)

	p.Stop()
	p.Stop()
}
