package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nhle/newsreader/internal/cache"
)

// MemoryStore is a process-local durable backend. Entries survive a
// cache.Manager being rebuilt but not a restart.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	used  int64
	quota int64
}

// NewMemoryStore creates an empty store. A quota of zero or less means
// unlimited.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), quota: quota}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores value under key, failing with cache.ErrQuotaExceeded when
// the quota would be exceeded.
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := int64(len(key) + len(value))
	used := s.used
	if old, ok := s.data[key]; ok {
		used -= int64(len(key) + len(old))
	}
	if s.quota > 0 && used+size > s.quota {
		return fmt.Errorf("writing %s (%d bytes): %w", key, size, cache.ErrQuotaExceeded)
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used + size
	return nil
}

// Remove deletes key. Missing keys are not an error.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[key]; ok {
		s.used -= int64(len(key) + len(old))
		delete(s.data, key)
	}
	return nil
}

// Keys lists stored keys starting with prefix, in key order.
func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
