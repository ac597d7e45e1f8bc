package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memDurable is a quota-bounded in-memory Durable.
type memDurable struct {
	mu       sync.Mutex
	data     map[string][]byte
	maxBytes int
	sets     int
}

func newMemDurable(maxBytes int) *memDurable {
	return &memDurable{data: make(map[string][]byte), maxBytes: maxBytes}
}

func (d *memDurable) size() int {
	n := 0
	for k, v := range d.data {
		n += len(k) + len(v)
	}
	return n
}

func (d *memDurable) Get(key string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.data[key]
	return v, ok, nil
}

func (d *memDurable) Set(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sets++
	old := 0
	if v, ok := d.data[key]; ok {
		old = len(key) + len(v)
	}
	if d.maxBytes > 0 && d.size()-old+len(key)+len(value) > d.maxBytes {
		return fmt.Errorf("set %s: %w", key, ErrQuotaExceeded)
	}
	d.data[key] = append([]byte(nil), value...)
	return nil
}

func (d *memDurable) Remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.data, key)
	return nil
}

func (d *memDurable) Keys(prefix string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var keys []string
	for k := range d.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *memDurable) has(key string) bool {
	_, ok, _ := d.Get(key)
	return ok
}
