package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/newsreader/internal/cache"
)

// RedisStore keeps durable cache entries on a Redis server. Reads fail
// soft: an unreachable server is a miss. A server rejecting writes under
// its maxmemory policy is reported as cache.ErrQuotaExceeded.
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a client for addr. It does not dial; use Ping to
// check reachability.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{rdb: rdb, timeout: 2 * time.Second}
}

func (r *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Get returns the bytes stored under key. Connection errors read as a miss.
func (r *RedisStore) Get(key string) ([]byte, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores value under key without a server-side expiry; the cache
// envelope carries its own TTL.
func (r *RedisStore) Set(key string, value []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()

	err := r.rdb.Set(ctx, key, value, 0).Err()
	if err == nil {
		return nil
	}
	if isOOM(err) {
		return fmt.Errorf("writing %s: %w", key, cache.ErrQuotaExceeded)
	}
	return fmt.Errorf("writing %s: %w", key, err)
}

// Remove deletes key.
func (r *RedisStore) Remove(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.rdb.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Keys lists keys starting with prefix using SCAN.
func (r *RedisStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var keys []string
	iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys: %w", err)
	}
	return keys, nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

func isOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM ")
}

func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
