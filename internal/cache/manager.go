package cache

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// evictFraction is the share of durable entries dropped when a write
// hits the quota.
const evictFraction = 0.2

// item is one in-memory entry.
type item struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
	durable   bool
}

func (it *item) valid(now time.Time) bool {
	return now.Sub(it.createdAt) < it.ttl
}

// Manager owns the in-memory cache map and its optional durable mirror.
// The in-memory map is authoritative while the process lives; the
// durable tier holds a subset of it and is only consulted on a memory
// miss. All methods are safe for concurrent use.
type Manager struct {
	cfg   config
	log   log.FieldLogger
	coord *Coordinator

	mu      sync.Mutex
	entries map[string]*item

	runMu   sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewManager creates a Manager. Without WithDurable it is memory-only.
func NewManager(opts ...Option) *Manager {
	cfg := buildConfig(opts)
	return &Manager{
		cfg:     cfg,
		log:     cfg.logger.WithField("component", "cache"),
		coord:   newCoordinator(cfg),
		entries: make(map[string]*item),
	}
}

// Coordinator returns the request coordinator used by Fetch.
func (m *Manager) Coordinator() *Coordinator {
	return m.coord
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.cfg.now()
}

// StaleRatio returns the configured staleness threshold.
func (m *Manager) StaleRatio() float64 {
	return m.cfg.staleRatio
}

// Len returns the number of in-memory entries, expired ones included.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Get returns the cached value for key if a valid entry exists, checking
// memory first and then the durable tier. Expired entries are removed as
// a side effect. A value of a different type than T is reported as a miss.
func Get[T any](m *Manager, key string) (T, bool) {
	e, ok := lookup[T](m, key)
	return e.Value, ok
}

// Set overwrites key with value. When durable is true the entry is also
// written to the durable tier; failures there never fail the call.
func Set[T any](m *Manager, key string, value T, ttl time.Duration, durable bool) {
	now := m.cfg.now()

	m.mu.Lock()
	m.entries[key] = &item{value: value, createdAt: now, ttl: ttl, durable: durable}
	m.mu.Unlock()

	if durable && m.cfg.durable != nil {
		if !m.writeDurable(key, value, now, ttl) {
			m.mu.Lock()
			if it, ok := m.entries[key]; ok && it.createdAt.Equal(now) {
				it.durable = false
			}
			m.mu.Unlock()
		}
	}
}

func lookup[T any](m *Manager, key string) (Entry[T], bool) {
	var zero Entry[T]
	now := m.cfg.now()

	m.mu.Lock()
	it, ok := m.entries[key]
	if ok && !it.valid(now) {
		delete(m.entries, key)
		m.mu.Unlock()
		m.removeDurable(key)
		m.cfg.metrics.Misses.Inc()
		return zero, false
	}
	if ok {
		v, decoded := decodeValue[T](it.value)
		if !decoded {
			m.mu.Unlock()
			m.log.WithField("key", key).Debug("cached value has unexpected type")
			m.cfg.metrics.Misses.Inc()
			return zero, false
		}
		it.value = v
		e := Entry[T]{Value: v, CreatedAt: it.createdAt, TTL: it.ttl}
		m.mu.Unlock()
		m.cfg.metrics.Hits.WithLabelValues("memory").Inc()
		return e, true
	}
	m.mu.Unlock()

	e, ok := lookupDurable[T](m, key, now)
	if !ok {
		m.cfg.metrics.Misses.Inc()
		return zero, false
	}
	m.cfg.metrics.Hits.WithLabelValues("durable").Inc()
	return e, true
}

// lookupDurable reads key from the durable tier and, on a valid hit,
// rehydrates the in-memory map unless a newer entry landed meanwhile.
func lookupDurable[T any](m *Manager, key string, now time.Time) (Entry[T], bool) {
	var zero Entry[T]
	if m.cfg.durable == nil {
		return zero, false
	}

	data, ok, err := m.cfg.durable.Get(m.cfg.namespace + key)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("durable read failed")
		return zero, false
	}
	if !ok {
		return zero, false
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		m.removeDurable(key)
		return zero, false
	}
	if now.Sub(env.CreatedAt) >= env.ttl() {
		m.removeDurable(key)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(env.Value, &v); err != nil {
		m.log.WithError(err).WithField("key", key).Debug("durable value does not decode")
		return zero, false
	}

	m.mu.Lock()
	if cur, exists := m.entries[key]; !exists || cur.createdAt.Before(env.CreatedAt) {
		m.entries[key] = &item{value: v, createdAt: env.CreatedAt, ttl: env.ttl(), durable: true}
	}
	m.mu.Unlock()

	return Entry[T]{Value: v, CreatedAt: env.CreatedAt, TTL: env.ttl()}, true
}

func decodeValue[T any](v any) (T, bool) {
	t, ok := v.(T)
	return t, ok
}

// writeDurable stores the entry in the durable tier. On a quota error it
// evicts the oldest entries and retries once; a second failure drops the
// write. It reports whether the value was persisted.
func (m *Manager) writeDurable(key string, value any, createdAt time.Time, ttl time.Duration) bool {
	data, err := encodeEnvelope(value, createdAt, ttl)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("durable encode failed")
		m.cfg.metrics.DurableWriteFailures.Inc()
		return false
	}

	err = m.cfg.durable.Set(m.cfg.namespace+key, data)
	if errors.Is(err, ErrQuotaExceeded) {
		m.evictOldestDurable()
		err = m.cfg.durable.Set(m.cfg.namespace+key, data)
	}
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("durable write dropped")
		m.cfg.metrics.DurableWriteFailures.Inc()
		return false
	}
	return true
}

// evictOldestDurable removes the oldest share of this manager's durable
// entries by creation time. In-memory copies are kept.
func (m *Manager) evictOldestDurable() {
	keys, err := m.cfg.durable.Keys(m.cfg.namespace)
	if err != nil {
		m.log.WithError(err).Warn("listing durable keys failed")
		return
	}
	if len(keys) == 0 {
		return
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	all := make([]aged, 0, len(keys))
	for _, k := range keys {
		a := aged{key: k}
		if data, ok, err := m.cfg.durable.Get(k); err == nil && ok {
			if env, err := decodeEnvelope(data); err == nil {
				a.createdAt = env.CreatedAt
			}
		}
		all = append(all, a)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].createdAt.Before(all[j].createdAt)
	})

	n := int(float64(len(all))*evictFraction + 0.999)
	if n < 1 {
		n = 1
	}

	for _, a := range all[:n] {
		if err := m.cfg.durable.Remove(a.key); err != nil {
			continue
		}
		m.cfg.metrics.DurableEvictions.Inc()
		m.mu.Lock()
		if it, ok := m.entries[strings.TrimPrefix(a.key, m.cfg.namespace)]; ok {
			it.durable = false
		}
		m.mu.Unlock()
	}
	m.log.WithField("evicted", n).Debug("evicted oldest durable entries")
}

func (m *Manager) removeDurable(key string) {
	if m.cfg.durable == nil {
		return
	}
	if err := m.cfg.durable.Remove(m.cfg.namespace + key); err != nil {
		m.log.WithError(err).WithField("key", key).Debug("durable remove failed")
	}
}

// Invalidate removes key from both tiers.
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	m.removeDurable(key)
}

// InvalidatePrefix removes every key starting with prefix from both tiers.
func (m *Manager) InvalidatePrefix(prefix string) {
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	m.removeDurablePrefix(prefix)
}

// InvalidateAll empties both tiers.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	m.entries = make(map[string]*item)
	m.mu.Unlock()
	m.removeDurablePrefix("")
}

func (m *Manager) removeDurablePrefix(prefix string) {
	if m.cfg.durable == nil {
		return
	}
	keys, err := m.cfg.durable.Keys(m.cfg.namespace + prefix)
	if err != nil {
		m.log.WithError(err).WithField("prefix", prefix).Warn("listing durable keys failed")
		return
	}
	for _, k := range keys {
		if err := m.cfg.durable.Remove(k); err != nil {
			m.log.WithError(err).WithField("key", k).Debug("durable remove failed")
		}
	}
}

// Sweep removes expired in-memory entries (and their durable copies) and
// forgets pending markers older than the drop limit. Valid entries and
// running operations are never touched.
func (m *Manager) Sweep() {
	now := m.cfg.now()

	var expiredDurable []string
	removed := 0
	m.mu.Lock()
	for key, it := range m.entries {
		if it.valid(now) {
			continue
		}
		delete(m.entries, key)
		removed++
		if it.durable {
			expiredDurable = append(expiredDurable, key)
		}
	}
	m.mu.Unlock()

	for _, key := range expiredDurable {
		m.removeDurable(key)
	}
	dropped := m.coord.Sweep(m.cfg.dropAfter)

	m.cfg.metrics.Swept.Add(float64(removed))
	if removed > 0 || dropped > 0 {
		m.log.WithFields(log.Fields{
			"expired": removed,
			"pending": dropped,
		}).Debug("cache sweep")
	}
}

// Start launches the periodic maintenance loop. Calling Start on a
// running manager is a no-op.
func (m *Manager) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.maintain(m.stopCh, m.doneCh)
}

func (m *Manager) maintain(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Close stops the maintenance loop. In-flight operations are left to
// finish on their own.
func (m *Manager) Close() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.running = false
}
