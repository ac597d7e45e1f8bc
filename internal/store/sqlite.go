package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/newsreader/internal/cache"
)

// SQLiteStore keeps durable cache entries in a local SQLite database.
// A positive quota caps the summed size of keys and values.
type SQLiteStore struct {
	db    *sqlx.DB
	quota int64
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. A quota of
// zero or less means unlimited.
func NewSQLiteStore(dbPath string, quota int64) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: every quota check sees its own writes, and an
	// in-memory database stays a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, quota: quota}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Get returns the bytes stored under key.
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.Get(&value, "SELECT value FROM cache_entries WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces key. It fails with cache.ErrQuotaExceeded when
// the write would take the store over its quota.
func (s *SQLiteStore) Set(key string, value []byte) error {
	ctx := context.Background()
	size := int64(len(key) + len(value))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if s.quota > 0 {
		var used int64
		err := tx.GetContext(ctx, &used,
			"SELECT COALESCE(SUM(size), 0) FROM cache_entries WHERE key <> ?", key)
		if err != nil {
			return fmt.Errorf("measuring usage: %w", err)
		}
		if used+size > s.quota {
			return fmt.Errorf("writing %s (%d bytes): %w", key, size, cache.ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache_entries (key, value, size, updated_at)
		VALUES (?, ?, ?, ?)`,
		key, value, size, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	return tx.Commit()
}

// Remove deletes key.
func (s *SQLiteStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys starting with prefix, in key order.
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	var keys []string
	// LIKE folds ASCII case, so compare the leading characters exactly.
	err := s.db.Select(&keys,
		`SELECT key FROM cache_entries WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// Usage reports the number of entries and their summed size.
func (s *SQLiteStore) Usage() (entries int, bytes int64, err error) {
	row := s.db.QueryRowx("SELECT COUNT(*), COALESCE(SUM(size), 0) FROM cache_entries")
	if err := row.Scan(&entries, &bytes); err != nil {
		return 0, 0, fmt.Errorf("reading usage: %w", err)
	}
	return entries, bytes, nil
}
