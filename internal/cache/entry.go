// Package cache implements the client-side two-tier cache: an
// authoritative in-memory map mirrored, for selected keys, into a durable
// key/value store, plus request deduplication and stale-while-revalidate
// fetching on top of it.
package cache

import "time"

// Entry is a cached value together with the time it was stored and how
// long it stays valid.
type Entry[T any] struct {
	Value     T
	CreatedAt time.Time
	TTL       time.Duration
}

// Age returns how long ago the entry was stored.
func (e Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Valid reports whether the entry is still within its TTL.
func (e Entry[T]) Valid(now time.Time) bool {
	return e.Age(now) < e.TTL
}

// Stale reports whether more than ratio of the TTL has elapsed. Stale
// entries are still served but should be refreshed in the background.
func (e Entry[T]) Stale(now time.Time, ratio float64) bool {
	return float64(e.Age(now)) > ratio*float64(e.TTL)
}
