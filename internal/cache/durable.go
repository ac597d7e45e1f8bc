package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrQuotaExceeded is returned by a Durable store when a write would take
// it over its capacity.
var ErrQuotaExceeded = errors.New("durable storage quota exceeded")

// Durable is the persistent tier: a small synchronous key/value store
// with a finite quota. Reads may return nothing; writes may fail.
type Durable interface {
	// Get returns the stored bytes. The boolean reports a hit.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, returning ErrQuotaExceeded (possibly
	// wrapped) when the store is full.
	Set(key string, value []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// Keys lists every stored key starting with prefix.
	Keys(prefix string) ([]string, error)
}

// envelope is the durable encoding of an entry.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	TTLMillis int64           `json:"ttl_ms"`
}

func (e envelope) ttl() time.Duration {
	return time.Duration(e.TTLMillis) * time.Millisecond
}

func encodeEnvelope(value any, createdAt time.Time, ttl time.Duration) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Value:     raw,
		CreatedAt: createdAt,
		TTLMillis: ttl.Milliseconds(),
	})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
