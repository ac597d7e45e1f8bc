package cache

import (
	"context"
	"time"
)

// FetchOptions controls a single Fetch call.
type FetchOptions struct {
	// TTL is applied to the entry written after a successful fetch.
	TTL time.Duration

	// Durable also mirrors the fetched value into the durable tier.
	Durable bool

	// ForceRefresh skips the cached value entirely.
	ForceRefresh bool

	// StaleWhileRevalidate serves a stale value immediately and refreshes
	// it in the background.
	StaleWhileRevalidate bool
}

// revalidatePrefix derives the coordinator key of background refreshes
// so they never attach to, or block, a foreground fetch of the same key.
const revalidatePrefix = "swr:"

// Fetch returns the cached value for key when one is valid, otherwise
// runs fn through the coordinator (deduplicated by key), caches the
// result and returns it. If fn fails the error is returned and nothing
// is cached.
//
// A valid but stale value is returned as is; with StaleWhileRevalidate
// set, one background refresh is scheduled whose failure is only logged.
func Fetch[T any](ctx context.Context, m *Manager, key string, fn func(context.Context) (T, error), opts FetchOptions) (T, error) {
	if !opts.ForceRefresh {
		if e, ok := lookup[T](m, key); ok {
			if opts.StaleWhileRevalidate && e.Stale(m.cfg.now(), m.cfg.staleRatio) {
				revalidate(ctx, m, key, fn, opts)
			}
			return e.Value, nil
		}
	}

	return Deduplicate(ctx, m.coord, key, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		// Past the hard timeout the callers were already rejected.
		if err := ctx.Err(); err != nil {
			return v, err
		}
		Set(m, key, v, opts.TTL, opts.Durable)
		return v, nil
	})
}

// revalidate schedules a background refresh of key unless one is
// already running.
func revalidate[T any](ctx context.Context, m *Manager, key string, fn func(context.Context) (T, error), opts FetchOptions) {
	swrKey := revalidatePrefix + key
	if m.coord.InFlight(swrKey) {
		return
	}
	m.cfg.metrics.StaleRevalidations.Inc()

	bg := context.WithoutCancel(ctx)
	go func() {
		_, err := Deduplicate(bg, m.coord, swrKey, func(ctx context.Context) (T, error) {
			v, err := fn(ctx)
			if err != nil {
				return v, err
			}
			if err := ctx.Err(); err != nil {
				return v, err
			}
			Set(m, key, v, opts.TTL, opts.Durable)
			return v, nil
		})
		if err != nil {
			m.log.WithError(err).WithField("key", key).Warn("background revalidation failed")
		}
	}()
}
