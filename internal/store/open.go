package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nhle/newsreader/internal/model"
)

// Open builds the durable backend named by cfg.Durable. It returns a nil
// Store for "none", leaving the cache memory-only.
func Open(cfg model.CacheConfig) (Store, error) {
	switch cfg.Durable {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(cfg.QuotaBytes), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, "", cfg.RedisDB), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(model.ConfigDir(), "cache.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		return NewSQLiteStore(path, cfg.QuotaBytes)
	default:
		return nil, fmt.Errorf("unknown durable backend %q", cfg.Durable)
	}
}
