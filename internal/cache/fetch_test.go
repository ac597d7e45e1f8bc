package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_MissPopulatesCache(t *testing.T) {
	m := NewManager()
	var calls atomic.Int32
	fn := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a", "b"}, nil
	}

	v, err := Fetch(t.Context(), m, "page:1", fn, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = Fetch(t.Context(), m, "page:1", fn, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ConcurrentCallersInvokeOnce(t *testing.T) {
	metrics := NewMetrics(nil)
	m := NewManager(WithMetrics(metrics))

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	const callers = 5
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(t.Context(), m, "k", fn, FetchOptions{TTL: time.Minute})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.DedupJoins) == callers-1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ErrorIsNotCached(t *testing.T) {
	m := NewManager()
	boom := errors.New("backend down")

	_, err := Fetch(t.Context(), m, "k", func(context.Context) (string, error) {
		return "", boom
	}, FetchOptions{TTL: time.Minute})
	assert.ErrorIs(t, err, boom)

	_, ok := Get[string](m, "k")
	assert.False(t, ok)

	v, err := Fetch(t.Context(), m, "k", func(context.Context) (string, error) {
		return "ok", nil
	}, FetchOptions{TTL: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestFetch_ForceRefreshBypassesCache(t *testing.T) {
	m := NewManager()
	Set(m, "k", "old", time.Minute, false)

	v, err := Fetch(t.Context(), m, "k", func(context.Context) (string, error) {
		return "new", nil
	}, FetchOptions{TTL: time.Minute, ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	cached, _ := Get[string](m, "k")
	assert.Equal(t, "new", cached)
}

func TestFetch_StaleWhileRevalidate(t *testing.T) {
	clock := newFakeClock()
	metrics := NewMetrics(nil)
	m := NewManager(WithClock(clock.Now), WithMetrics(metrics))
	Set(m, "k", "old", 10*time.Second, false)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "new", nil
	}
	opts := FetchOptions{TTL: 10 * time.Second, StaleWhileRevalidate: true}

	// Fresh: no refresh.
	v, err := Fetch(t.Context(), m, "k", fn, opts)
	require.NoError(t, err)
	assert.Equal(t, "old", v)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StaleRevalidations))

	// Stale: cached value returned immediately, one refresh scheduled.
	clock.Advance(8 * time.Second)
	for range 3 {
		v, err = Fetch(t.Context(), m, "k", fn, opts)
		require.NoError(t, err)
		assert.Equal(t, "old", v)
		require.Eventually(t, func() bool { return m.Coordinator().InFlight("swr:k") }, time.Second, time.Millisecond)
	}
	close(release)

	require.Eventually(t, func() bool {
		v, _ := Get[string](m, "k")
		return v == "new"
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RevalidationFailureKeepsValue(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(WithClock(clock.Now))
	Set(m, "k", "old", 10*time.Second, false)
	clock.Advance(9 * time.Second)

	done := make(chan struct{})
	v, err := Fetch(t.Context(), m, "k", func(context.Context) (string, error) {
		defer close(done)
		return "", errors.New("refresh failed")
	}, FetchOptions{TTL: 10 * time.Second, StaleWhileRevalidate: true})
	require.NoError(t, err)
	assert.Equal(t, "old", v)

	<-done
	require.Eventually(t, func() bool { return !m.Coordinator().InFlight("swr:k") }, time.Second, time.Millisecond)
	cached, ok := Get[string](m, "k")
	assert.True(t, ok)
	assert.Equal(t, "old", cached)
}

func TestFetch_LateResultAfterTimeoutIsNotCached(t *testing.T) {
	m := NewManager(WithFetchTimeout(20 * time.Millisecond))
	finished := make(chan struct{})
	fn := func(context.Context) (string, error) {
		defer close(finished)
		time.Sleep(80 * time.Millisecond)
		return "late", nil
	}

	_, err := Fetch(t.Context(), m, "slow", fn, FetchOptions{TTL: time.Minute})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	<-finished
	time.Sleep(10 * time.Millisecond)
	_, ok := Get[string](m, "slow")
	assert.False(t, ok, "a rejected fetch must not populate the cache")
}
