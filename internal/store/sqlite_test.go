package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/store"
	"github.com/nhle/newsreader/tests/testutil"
)

func TestSQLiteStore_GetSetRemove(t *testing.T) {
	s := testutil.NewTestStore(t, 0)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("newsreader:a", []byte(`{"value":1}`)))
	v, ok, err := s.Get("newsreader:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"value":1}`, string(v))

	require.NoError(t, s.Set("newsreader:a", []byte(`{"value":2}`)))
	v, _, _ = s.Get("newsreader:a")
	assert.Equal(t, `{"value":2}`, string(v))

	require.NoError(t, s.Remove("newsreader:a"))
	require.NoError(t, s.Remove("newsreader:a"))
	_, ok, _ = s.Get("newsreader:a")
	assert.False(t, ok)
}

func TestSQLiteStore_KeysByPrefix(t *testing.T) {
	s := testutil.NewTestStore(t, 0)
	for _, k := range []string{"newsreader:inbox:page:all:1", "newsreader:inbox:page:all:2", "newsreader:sender:x", "other_100%"} {
		require.NoError(t, s.Set(k, []byte("v")))
	}

	keys, err := s.Keys("newsreader:inbox:")
	require.NoError(t, err)
	assert.Equal(t, []string{"newsreader:inbox:page:all:1", "newsreader:inbox:page:all:2"}, keys)

	keys, err = s.Keys("other_100%")
	require.NoError(t, err)
	assert.Equal(t, []string{"other_100%"}, keys)

	keys, err = s.Keys("other_1000")
	require.NoError(t, err)
	assert.Empty(t, keys, "wildcards in the prefix are literal")
}

func TestSQLiteStore_KeysPrefixIsCaseSensitive(t *testing.T) {
	s := testutil.NewTestStore(t, 0)
	require.NoError(t, s.Set("newsreader:sender:a", []byte("v")))
	require.NoError(t, s.Set("NEWSREADER:SENDER:B", []byte("v")))

	keys, err := s.Keys("newsreader:sender:")
	require.NoError(t, err)
	assert.Equal(t, []string{"newsreader:sender:a"}, keys)

	require.NoError(t, s.Remove("newsreader:sender:a"))
	keys, err = s.Keys("newsreader:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = s.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"NEWSREADER:SENDER:B"}, keys)
}

func TestSQLiteStore_Quota(t *testing.T) {
	s := testutil.NewTestStore(t, 20)

	require.NoError(t, s.Set("k1", []byte("12345678")))
	err := s.Set("k2", []byte("1234567890"))
	assert.ErrorIs(t, err, cache.ErrQuotaExceeded)

	// Replacing a key only counts the new value.
	require.NoError(t, s.Set("k1", []byte("123456789012345678")))

	entries, bytes, err := s.Usage()
	require.NoError(t, err)
	assert.Equal(t, 1, entries)
	assert.Equal(t, int64(20), bytes)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := store.NewSQLiteStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path, 0)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestSQLiteStore_BacksCacheManager(t *testing.T) {
	s := testutil.NewTestStore(t, 0)

	m := cache.NewManager(cache.WithDurable(s))
	cache.Set(m, "sender:news@example.com", "Example Weekly", time.Hour, true)

	fresh := cache.NewManager(cache.WithDurable(s))
	v, ok := cache.Get[string](fresh, "sender:news@example.com")
	assert.True(t, ok)
	assert.Equal(t, "Example Weekly", v)
}
