// Package store provides the durable key/value backends behind the
// cache's persistent tier: an embedded SQLite file, a Redis server, and
// an in-process map for tests and ephemeral runs.
package store

import (
	"io"

	"github.com/nhle/newsreader/internal/cache"
)

// Store is a durable cache backend that owns a connection.
type Store interface {
	cache.Durable
	io.Closer
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
