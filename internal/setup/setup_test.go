package setup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/credential"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source/api"
	"github.com/nhle/newsreader/internal/source/email"
	"github.com/nhle/newsreader/tests/testutil"
)

func TestNewRemote(t *testing.T) {
	t.Setenv(credential.EnvSecret, "token")

	_, err := NewRemote(model.RemoteConfig{Kind: "api"}, 20)
	assert.ErrorIs(t, err, ErrNotConfigured)

	r, err := NewRemote(model.RemoteConfig{Kind: "api", User: "alice", BaseURL: "https://news.example.com"}, 20)
	require.NoError(t, err)
	assert.IsType(t, &api.Adapter{}, r)

	r, err = NewRemote(model.RemoteConfig{Kind: "imap", User: "alice", IMAPHost: "imap.example.com", IMAPPort: "993", TLS: true}, 20)
	require.NoError(t, err)
	assert.IsType(t, &email.Adapter{}, r)

	_, err = NewRemote(model.RemoteConfig{Kind: "pop3", User: "alice"}, 20)
	assert.Error(t, err)
}

func TestBuild_EndToEnd(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Cache.Durable = "sqlite"
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Inbox.BatchDelayMs = 1

	remote := testutil.NewFakeRemote(cfg.Inbox.PageSize, testutil.Mailbox(25))
	svc, err := Build(cfg, Options{Remote: remote, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	snap, err := svc.Pipeline.Activate(context.Background(), model.ViewUnread)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 25)

	keys, err := svc.Store.Keys("")
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "sender info is mirrored durably")
}

func TestBuild_UnknownBackend(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Cache.Durable = "etcd"
	_, err := Build(cfg, Options{Remote: testutil.NewFakeRemote(20, nil)})
	assert.Error(t, err)
}
