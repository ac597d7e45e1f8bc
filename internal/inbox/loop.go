package inbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// loopHandle identifies one owner of a view's cursor. Stopping a loop
// releases its handle; results carrying a released handle are dropped.
type loopHandle struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	// loaded closes when the initial load of the handle settles.
	loaded     chan struct{}
	loadedOnce sync.Once

	// done closes when the handle is released.
	done     chan struct{}
	doneOnce sync.Once

	// emptyBatches counts consecutive batches that returned nothing.
	// Guarded by Pipeline.mu.
	emptyBatches int
}

func (p *Pipeline) newHandle() *loopHandle {
	ctx, cancel := context.WithCancel(p.rootCtx)
	return &loopHandle{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (h *loopHandle) markLoaded() {
	h.loadedOnce.Do(func() { close(h.loaded) })
}

func (h *loopHandle) release() {
	h.doneOnce.Do(func() {
		h.cancel()
		h.markLoaded()
		close(h.done)
	})
}

// startLoopLocked hands vs to h and starts its catch-up loop.
func (p *Pipeline) startLoopLocked(vs *viewState, h *loopHandle) {
	vs.loop = h
	vs.background = BackgroundCatchingUp
	p.wg.Add(1)
	go p.catchUp(vs, h)
}

// catchUp fetches batches until the view is exhausted, a batch fails
// entirely, or the loop is stopped. Batches are separated by
// Config.BatchDelay.
func (p *Pipeline) catchUp(vs *viewState, h *loopHandle) {
	defer p.wg.Done()

	for p.step(vs, h) {
		if p.cfg.BatchDelay <= 0 {
			continue
		}
		t := time.NewTimer(p.cfg.BatchDelay)
		select {
		case <-h.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// step fetches the next batch for vs and merges it. It reports whether
// another batch should follow. When it returns false the handle has
// been released.
func (p *Pipeline) step(vs *viewState, h *loopHandle) bool {
	logger := p.log.WithFields(log.Fields{"view": vs.view, "run": h.id})

	p.mu.Lock()
	if vs.loop != h {
		p.mu.Unlock()
		return false
	}
	first := vs.cursor
	if first > p.cfg.MaxPages {
		vs.hasMore = false
		p.finishLocked(vs, h)
		p.publish(vs)
		p.mu.Unlock()
		return false
	}
	count := min(p.cfg.BatchPages, p.cfg.MaxPages-first+1)
	// An empty batch is confirmed against the remote, not the page cache.
	force := h.emptyBatches > 0
	p.mu.Unlock()

	ctx, span := p.tracer.Start(h.ctx, "inbox.batch", trace.WithAttributes(
		attribute.String("inbox.view", string(vs.view)),
		attribute.String("inbox.run", h.id),
		attribute.Int("inbox.first_page", first),
		attribute.Int("inbox.pages", count),
	))
	defer span.End()
	results := p.fetchBatch(ctx, vs.view, first, count, force)

	p.mu.Lock()
	defer p.mu.Unlock()

	if vs.loop != h {
		logger.Debug("discarding superseded batch")
		span.SetAttributes(attribute.Bool("inbox.superseded", true))
		return false
	}

	sum := summarize(results, p.cfg.PageSize)
	span.SetAttributes(attribute.Int("inbox.items", sum.total), attribute.Int("inbox.failed", sum.failed))

	if sum.failed == count {
		span.SetStatus(codes.Error, sum.firstErr.Error())
		logger.WithError(sum.firstErr).Warn("catch-up batch failed, stopping")
		p.finishLocked(vs, h)
		p.publish(vs)
		return false
	}
	if sum.failed > 0 {
		logger.WithError(sum.firstErr).WithField("failed", sum.failed).Warn("catch-up batch partially failed")
	}

	vs.items = merge(vs.items, sum.items)
	vs.lastUpdated = p.now()

	switch {
	case sum.total == 0:
		h.emptyBatches++
		if h.emptyBatches >= 2 {
			vs.hasMore = false
		}
	case sum.lastFailed:
		h.emptyBatches = 0
		vs.cursor = sum.lastData + 1
	default:
		h.emptyBatches = 0
		vs.cursor = sum.lastData + 1
		if !sum.lastFull {
			vs.hasMore = false
		}
	}
	if vs.cursor > p.cfg.MaxPages {
		vs.hasMore = false
	}

	logger.WithFields(log.Fields{
		"first":    first,
		"items":    sum.total,
		"cursor":   vs.cursor,
		"has_more": vs.hasMore,
	}).Debug("catch-up batch merged")

	if !vs.hasMore {
		p.finishLocked(vs, h)
		p.publish(vs)
		return false
	}
	p.publish(vs)
	return true
}
