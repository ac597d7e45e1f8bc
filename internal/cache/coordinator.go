package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Coordinator deduplicates concurrent operations by key: while one
// operation for a key is in flight, further callers attach to it and
// receive its outcome instead of starting their own.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*call

	now          func() time.Time
	abandonAfter time.Duration
	timeout      time.Duration
	metrics      *Metrics
}

// call is one in-flight operation shared by every attached caller.
type call struct {
	done      chan struct{}
	val       any
	err       error
	startedAt time.Time
}

type result struct {
	val any
	err error
}

// NewCoordinator creates a standalone Coordinator. Managers own one each;
// see Manager.Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	return newCoordinator(buildConfig(opts))
}

func newCoordinator(cfg config) *Coordinator {
	return &Coordinator{
		pending:      make(map[string]*call),
		now:          cfg.now,
		abandonAfter: cfg.abandonAfter,
		timeout:      cfg.fetchTimeout,
		metrics:      cfg.metrics,
	}
}

// Do runs fn under key unless an operation for key is already in flight,
// in which case it waits for that one. Markers older than the abandon
// limit are ignored and replaced by a fresh operation.
//
// fn runs on a context detached from ctx's cancellation and bounded by
// the hard fetch timeout, so one caller giving up does not fail the
// others. ctx only bounds how long this caller waits.
func (c *Coordinator) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	if cl, ok := c.pending[key]; ok && c.now().Sub(cl.startedAt) < c.abandonAfter {
		c.mu.Unlock()
		c.metrics.DedupJoins.Inc()
		return cl.wait(ctx)
	}

	cl := &call{done: make(chan struct{}), startedAt: c.now()}
	c.pending[key] = cl
	c.mu.Unlock()

	go c.run(ctx, key, cl, fn)
	return cl.wait(ctx)
}

// run executes fn and settles cl. The marker is only cleared if it still
// belongs to this call; an abandoned marker may have been replaced.
func (c *Coordinator) run(ctx context.Context, key string, cl *call, fn func(context.Context) (any, error)) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("operation %q panicked: %v", key, r)}
			}
		}()
		v, err := fn(opCtx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		cl.val, cl.err = r.val, r.err
	case <-opCtx.Done():
		cl.err = fmt.Errorf("operation %q: %w", key, opCtx.Err())
	}
	close(cl.done)

	c.mu.Lock()
	if c.pending[key] == cl {
		delete(c.pending, key)
	}
	c.mu.Unlock()
}

func (cl *call) wait(ctx context.Context) (any, error) {
	select {
	case <-cl.done:
		return cl.val, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports whether a live (not abandoned) operation exists for key.
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.pending[key]
	return ok && c.now().Sub(cl.startedAt) < c.abandonAfter
}

// Len returns the number of pending markers, abandoned ones included.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Sweep forgets markers older than maxAge. The operations themselves keep
// running; only their deduplication slot is released.
func (c *Coordinator) Sweep(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for key, cl := range c.pending {
		if now.Sub(cl.startedAt) > maxAge {
			delete(c.pending, key)
			n++
		}
	}
	return n
}

// Deduplicate is the typed form of Coordinator.Do.
func Deduplicate[T any](ctx context.Context, c *Coordinator, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Do(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil || v == nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("operation %q returned %T", key, v)
	}
	return t, nil
}
