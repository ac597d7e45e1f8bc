package inbox

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/model"
)

const (
	pagePrefix = "inbox:page:"
	countsKey  = "inbox:counts"
)

func pageKey(view model.View, page int) string {
	return pagePrefix + string(view) + ":" + strconv.Itoa(page)
}

func viewPagePrefix(view model.View) string {
	return pagePrefix + string(view) + ":"
}

// pageResult is the outcome of one page within a batch.
type pageResult struct {
	page  int
	items []model.Email
	err   error
}

// batchSummary folds a batch of page results.
type batchSummary struct {
	items      []model.Email
	total      int
	failed     int
	lastData   int
	lastFull   bool
	lastFailed bool
	firstErr   error
}

func summarize(results []pageResult, pageSize int) batchSummary {
	var s batchSummary
	for _, r := range results {
		if r.err != nil {
			s.failed++
			if s.firstErr == nil {
				s.firstErr = r.err
			}
			continue
		}
		if len(r.items) > 0 {
			s.items = append(s.items, r.items...)
			s.total += len(r.items)
			s.lastData = r.page
		}
	}
	if n := len(results); n > 0 {
		last := results[n-1]
		s.lastFailed = last.err != nil
		s.lastFull = last.err == nil && len(last.items) >= pageSize
	}
	return s
}

// fetchPage reads one page through the cache. Remote records are
// normalized before they are cached.
func (p *Pipeline) fetchPage(ctx context.Context, view model.View, page int, force bool) ([]model.Email, error) {
	ctx, span := p.tracer.Start(ctx, "inbox.page", trace.WithAttributes(
		attribute.String("inbox.view", string(view)),
		attribute.Int("inbox.page", page),
		attribute.Bool("inbox.force", force),
	))
	defer span.End()

	items, err := cache.Fetch(ctx, p.cache, pageKey(view, page), func(ctx context.Context) ([]model.Email, error) {
		raws, err := p.remote.FetchPage(ctx, page, view, force)
		if err != nil {
			return nil, err
		}
		return p.norm.NormalizeAll(raws), nil
	}, cache.FetchOptions{
		TTL:                  p.cfg.PageTTL,
		ForceRefresh:         force,
		StaleWhileRevalidate: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching %s page %d: %w", view, page, err)
	}
	span.SetAttributes(attribute.Int("inbox.items", len(items)))
	return items, nil
}

// fetchBatch fetches count pages starting at first in parallel. A failed
// page never cancels its siblings.
func (p *Pipeline) fetchBatch(ctx context.Context, view model.View, first, count int, force bool) []pageResult {
	results := make([]pageResult, count)

	var g errgroup.Group
	g.SetLimit(p.parallelism())
	for i := range count {
		page := first + i
		g.Go(func() error {
			items, err := p.fetchPage(ctx, view, page, force)
			results[i] = pageResult{page: page, items: items, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) parallelism() int {
	return max(p.cfg.InitialPages, p.cfg.BatchPages)
}

// refreshCounts reads the mailbox counts through the cache and stores
// them for snapshots.
// A result is dropped when a local change adjusted the counts while the
// fetch was running.
func (p *Pipeline) refreshCounts(ctx context.Context, force bool) (model.Counts, error) {
	p.mu.Lock()
	gen := p.countsGen
	p.mu.Unlock()

	c, err := cache.Fetch(ctx, p.cache, countsKey, p.remote.Counts, cache.FetchOptions{
		TTL:                  p.cfg.CountsTTL,
		ForceRefresh:         force,
		StaleWhileRevalidate: true,
	})
	if err != nil {
		return model.Counts{}, fmt.Errorf("fetching counts: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.countsGen {
		return p.counts, nil
	}
	p.counts = c
	if vs, ok := p.views[p.active]; ok {
		p.publish(vs)
	}
	return c, nil
}

func (p *Pipeline) refreshCountsAsync(force bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if _, err := p.refreshCounts(p.rootCtx, force); err != nil {
			p.log.WithError(err).Warn("refreshing counts")
		}
	}()
}
