// Package inbox turns remote pages into per-view email lists: a fast
// parallel initial load, a throttled background catch-up loop, and
// local flag changes applied without refetching.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/normalize"
	"github.com/nhle/newsreader/internal/source"
)

// ErrInitialLoad is returned when every page of an initial load failed.
var ErrInitialLoad = errors.New("initial load failed")

// ErrClosed is returned by operations on a closed pipeline.
var ErrClosed = errors.New("pipeline closed")

// ErrNoActiveView is returned by RequestMore and Refresh before any view
// has been activated.
var ErrNoActiveView = errors.New("no active view")

const updatesBuffer = 16

// Pipeline owns the per-view caches of one mailbox.
type Pipeline struct {
	remote source.Remote
	norm   *normalize.Normalizer
	cache  *cache.Manager
	cfg    Config
	log    log.FieldLogger
	tracer trace.Tracer
	now    func() time.Time

	rootCtx    context.Context
	cancelRoot context.CancelFunc
	wg         sync.WaitGroup

	mu      sync.Mutex
	views   map[model.View]*viewState
	active  model.View
	counts  model.Counts
	closed  bool

	// countsGen changes whenever counts are adjusted locally.
	countsGen int
	updates chan Snapshot
}

// New creates a Pipeline reading from remote through cm.
func New(remote source.Remote, norm *normalize.Normalizer, cm *cache.Manager, cfg Config, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	if norm == nil {
		norm = normalize.New(cm, 0, o.logger)
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		remote:     remote,
		norm:       norm,
		cache:      cm,
		cfg:        cfg.withDefaults(),
		log:        o.logger.WithField("component", "inbox"),
		tracer:     o.tp.Tracer("github.com/nhle/newsreader/internal/inbox"),
		now:        o.now,
		rootCtx:    ctx,
		cancelRoot: cancel,
		views:      make(map[model.View]*viewState),
		updates:    make(chan Snapshot, updatesBuffer),
	}
}

// Config returns the effective tuning.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Active returns the currently active view.
func (p *Pipeline) Active() model.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Updates delivers a snapshot whenever a view changes. Slow readers
// lose intermediate snapshots, never the latest one.
func (p *Pipeline) Updates() <-chan Snapshot {
	return p.updates
}

// Snapshot returns a copy of view's current state.
func (p *Pipeline) Snapshot(view model.View) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked(view).snapshot(p.counts)
}

// Counts returns the last known mailbox counts.
func (p *Pipeline) Counts() model.Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// RefreshCounts fetches the mailbox counts, bypassing the cache when
// force is set.
func (p *Pipeline) RefreshCounts(ctx context.Context, force bool) (model.Counts, error) {
	return p.refreshCounts(ctx, force)
}

// Activate makes view the active view. A fresh, non-empty view is
// returned from memory; otherwise the first pages are fetched in
// parallel and, when more may exist, a catch-up loop is started.
func (p *Pipeline) Activate(ctx context.Context, view model.View) (Snapshot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Snapshot{}, ErrClosed
	}

	if p.active != view {
		if prev, ok := p.views[p.active]; ok {
			p.stopLocked(prev)
		}
		p.active = view
	}
	vs := p.viewLocked(view)

	if vs.state == StateLoadingInitial && vs.loop != nil {
		h := vs.loop
		p.mu.Unlock()
		select {
		case <-h.loaded:
		case <-ctx.Done():
			return p.Snapshot(view), ctx.Err()
		}
		return p.Snapshot(view), nil
	}

	if vs.fresh(p.now(), p.cfg.Freshness) {
		if p.cfg.ResumeOnActivate && vs.hasMore && vs.loop == nil {
			p.startLoopLocked(vs, p.newHandle())
		}
		snap := vs.snapshot(p.counts)
		p.publish(vs)
		p.mu.Unlock()
		p.refreshCountsAsync(false)
		return snap, nil
	}

	p.stopLocked(vs)
	vs.reset()
	h := p.beginLoadLocked(vs)
	p.mu.Unlock()

	p.refreshCountsAsync(false)
	return p.initialLoad(ctx, vs, h, false)
}

// RequestMore asks for further pages of the active view. When a
// catch-up loop already runs this is a no-op; otherwise one batch is
// fetched synchronously.
func (p *Pipeline) RequestMore(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if p.active == "" {
		p.mu.Unlock()
		return Snapshot{}, ErrNoActiveView
	}
	vs := p.viewLocked(p.active)
	if vs.state != StateReady || !vs.hasMore || vs.loop != nil {
		snap := vs.snapshot(p.counts)
		p.mu.Unlock()
		return snap, nil
	}
	h := p.newHandle()
	vs.loop = h
	vs.background = BackgroundCatchingUp
	p.publish(vs)
	p.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			h.release()
		case <-h.done:
		}
	}()

	if p.step(vs, h) {
		p.mu.Lock()
		if vs.loop == h {
			p.finishLocked(vs, h)
			p.publish(vs)
		}
		p.mu.Unlock()
	}
	return p.Snapshot(vs.view), nil
}

// Refresh discards the active view and its cached pages and reloads it
// from the remote.
func (p *Pipeline) Refresh(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	if p.active == "" {
		p.mu.Unlock()
		return Snapshot{}, ErrNoActiveView
	}
	vs := p.viewLocked(p.active)
	p.stopLocked(vs)
	vs.reset()
	h := p.beginLoadLocked(vs)
	p.mu.Unlock()

	p.cache.InvalidatePrefix(viewPagePrefix(vs.view))
	p.cache.Invalidate(countsKey)
	p.refreshCountsAsync(true)

	return p.initialLoad(ctx, vs, h, true)
}

// WaitIdle blocks until no load or catch-up loop runs for view.
func (p *Pipeline) WaitIdle(ctx context.Context, view model.View) error {
	for {
		p.mu.Lock()
		h := p.viewLocked(view).loop
		p.mu.Unlock()
		if h == nil {
			return nil
		}
		select {
		case <-h.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops every loop and waits for background work to end. The
// updates channel is closed afterwards.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, vs := range p.views {
		p.stopLocked(vs)
	}
	p.mu.Unlock()

	p.cancelRoot()
	p.wg.Wait()
	close(p.updates)
}

// initialLoad fetches the first pages of vs in parallel. Results are
// applied only while h still owns the view.
func (p *Pipeline) initialLoad(ctx context.Context, vs *viewState, h *loopHandle, force bool) (Snapshot, error) {
	defer h.markLoaded()

	ctx, span := p.tracer.Start(ctx, "inbox.initial_load", trace.WithAttributes(
		attribute.String("inbox.view", string(vs.view)),
		attribute.String("inbox.run", h.id),
		attribute.Int("inbox.pages", p.cfg.InitialPages),
		attribute.Bool("inbox.force", force),
	))
	defer span.End()

	logger := p.log.WithFields(log.Fields{"view": vs.view, "run": h.id})
	results := p.fetchBatch(ctx, vs.view, 1, p.cfg.InitialPages, force)

	p.mu.Lock()
	defer p.mu.Unlock()

	if vs.loop != h {
		logger.Debug("discarding superseded initial load")
		span.SetAttributes(attribute.Bool("inbox.superseded", true))
		return vs.snapshot(p.counts), nil
	}

	sum := summarize(results, p.cfg.PageSize)
	if sum.failed == len(results) {
		err := fmt.Errorf("%w: %s: %w", ErrInitialLoad, vs.view, sum.firstErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(sum.firstErr).Warn("initial load failed")

		vs.state = StateEmpty
		vs.lastErr = err
		p.finishLocked(vs, h)
		p.publish(vs)
		return vs.snapshot(p.counts), err
	}
	if sum.failed > 0 {
		logger.WithError(sum.firstErr).WithField("failed", sum.failed).Warn("initial load partially failed")
	}

	vs.items = merge(vs.items, sum.items)
	if sum.lastData > 0 {
		vs.cursor = sum.lastData + 1
	}
	vs.hasMore = sum.total > 0 && (sum.lastFull || sum.lastFailed) && vs.cursor <= p.cfg.MaxPages
	vs.state = StateReady
	vs.lastErr = nil
	vs.lastUpdated = p.now()
	span.SetAttributes(attribute.Int("inbox.items", sum.total), attribute.Bool("inbox.has_more", vs.hasMore))
	logger.WithFields(log.Fields{"items": sum.total, "has_more": vs.hasMore}).Debug("initial load done")

	if vs.hasMore {
		p.startLoopLocked(vs, h)
	} else {
		p.finishLocked(vs, h)
	}
	p.publish(vs)
	return vs.snapshot(p.counts), nil
}

func (p *Pipeline) viewLocked(view model.View) *viewState {
	vs, ok := p.views[view]
	if !ok {
		vs = newViewState(view)
		p.views[view] = vs
	}
	return vs
}

// beginLoadLocked hands vs to a new handle for an initial load.
func (p *Pipeline) beginLoadLocked(vs *viewState) *loopHandle {
	h := p.newHandle()
	vs.loop = h
	vs.state = StateLoadingInitial
	p.publish(vs)
	return h
}

// stopLocked cancels whatever owns vs. An interrupted initial load
// leaves the view empty.
func (p *Pipeline) stopLocked(vs *viewState) {
	if vs.loop == nil {
		return
	}
	vs.loop.release()
	vs.loop = nil
	vs.background = BackgroundIdle
	if vs.state == StateLoadingInitial {
		vs.state = StateEmpty
	}
}

// finishLocked releases h after it ran to completion.
func (p *Pipeline) finishLocked(vs *viewState, h *loopHandle) {
	h.release()
	if vs.loop == h {
		vs.loop = nil
		vs.background = BackgroundIdle
	}
}

// publish offers a snapshot of vs without blocking. When the buffer is
// full the oldest pending snapshot is dropped.
func (p *Pipeline) publish(vs *viewState) {
	if p.closed {
		return
	}
	snap := vs.snapshot(p.counts)
	for {
		select {
		case p.updates <- snap:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}
