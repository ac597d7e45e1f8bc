package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nhle/newsreader/internal/store"
)

// NewTestStore creates a SQLiteStore in a per-test temporary directory
// with all migrations applied. It automatically closes the store when
// the test completes.
func NewTestStore(t *testing.T, quota int64) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), quota)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
