package testutil

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

// PageCall records one FetchPage call.
type PageCall struct {
	View   model.View
	Page   int
	Bypass bool
}

// FlagCall records one SetFlag call.
type FlagCall struct {
	ID    string
	Flag  model.Flag
	Value bool
}

type pageRef struct {
	view model.View
	page int
}

// FakeRemote is an in-memory source.Remote over a scripted mailbox.
// Pages are computed by filtering the mailbox per view unless a page was
// scripted explicitly.
type FakeRemote struct {
	PageSize int

	mu        sync.Mutex
	mailbox   []source.RawEmail
	scripted  map[pageRef][]source.RawEmail
	failures  map[pageRef]error
	flagErr   error
	countsErr error
	gate      chan struct{}
	fetches   []PageCall
	flagCalls []FlagCall
	countHits int
}

// NewFakeRemote returns a remote serving mailbox in pages of pageSize.
func NewFakeRemote(pageSize int, mailbox []source.RawEmail) *FakeRemote {
	return &FakeRemote{
		PageSize: pageSize,
		mailbox:  mailbox,
		scripted: make(map[pageRef][]source.RawEmail),
		failures: make(map[pageRef]error),
	}
}

// Mailbox builds n unread records with ids m-001.. received one minute
// apart, newest first.
func Mailbox(n int) []source.RawEmail {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]source.RawEmail, n)
	for i := range n {
		out[i] = source.RawEmail{
			"id":          fmt.Sprintf("m-%03d", i+1),
			"sender":      fmt.Sprintf("Letter %d <letter%d@example.com>", i%5, i%5),
			"subject":     fmt.Sprintf("Issue %d", i+1),
			"received_at": base.Add(-time.Duration(i) * time.Minute).Format(time.RFC3339),
			"is_read":     false,
		}
	}
	return out
}

func (f *FakeRemote) Name() string { return "fake" }

// SetPage scripts the records returned for one page of a view.
func (f *FakeRemote) SetPage(view model.View, page int, items []source.RawEmail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripted[pageRef{view, page}] = items
}

// Deliver adds records to the top of the mailbox, as new mail would.
func (f *FakeRemote) Deliver(raws ...source.RawEmail) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mailbox = append(cloneAll(raws), f.mailbox...)
}

// FailPage makes a page fail with err until ClearFailures.
func (f *FakeRemote) FailPage(view model.View, page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[pageRef{view, page}] = err
}

// ClearFailures removes every scripted failure.
func (f *FakeRemote) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.failures)
}

// FailFlags makes SetFlag return err.
func (f *FakeRemote) FailFlags(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flagErr = err
}

// FailCounts makes Counts return err; nil restores it.
func (f *FakeRemote) FailCounts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countsErr = err
}

// Hold blocks every FetchPage call until the returned release is called.
func (f *FakeRemote) Hold() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Fetches returns every FetchPage call so far.
func (f *FakeRemote) Fetches() []PageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PageCall(nil), f.fetches...)
}

// FetchCount returns the number of FetchPage calls so far.
func (f *FakeRemote) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches)
}

// FlagCalls returns every SetFlag call so far.
func (f *FakeRemote) FlagCalls() []FlagCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FlagCall(nil), f.flagCalls...)
}

// CountCalls returns the number of Counts calls so far.
func (f *FakeRemote) CountCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countHits
}

func (f *FakeRemote) FetchPage(ctx context.Context, page int, view model.View, bypassCache bool) ([]source.RawEmail, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, PageCall{View: view, Page: page, Bypass: bypassCache})
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ref := pageRef{view, page}
	if err, ok := f.failures[ref]; ok {
		return nil, err
	}
	if items, ok := f.scripted[ref]; ok {
		return cloneAll(items), nil
	}

	var matched []source.RawEmail
	for _, raw := range f.mailbox {
		if includes(view, raw) {
			matched = append(matched, raw)
		}
	}
	start := (page - 1) * f.PageSize
	if start >= len(matched) || page < 1 {
		return []source.RawEmail{}, nil
	}
	end := min(start+f.PageSize, len(matched))
	return cloneAll(matched[start:end]), nil
}

func (f *FakeRemote) SetFlag(ctx context.Context, id string, flag model.Flag, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flagCalls = append(f.flagCalls, FlagCall{ID: id, Flag: flag, Value: value})
	if f.flagErr != nil {
		return f.flagErr
	}
	for _, raw := range f.mailbox {
		if raw.String("id") == id {
			raw["is_"+string(flag)] = value
			return nil
		}
	}
	return fmt.Errorf("email %s not found", id)
}

func (f *FakeRemote) Counts(ctx context.Context) (model.Counts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.countHits++
	if f.countsErr != nil {
		return model.Counts{}, f.countsErr
	}
	var c model.Counts
	for _, raw := range f.mailbox {
		if raw.Bool("is_trashed") {
			continue
		}
		if raw.Bool("is_read") {
			c.Read++
		} else {
			c.Unread++
		}
	}
	c.Total = c.Read + c.Unread
	return c, nil
}

func includes(view model.View, raw source.RawEmail) bool {
	if raw.Bool("is_trashed") {
		return false
	}
	switch view {
	case model.ViewUnread:
		return !raw.Bool("is_read")
	case model.ViewRead:
		return raw.Bool("is_read")
	case model.ViewFavorites:
		return raw.Bool("is_favorite")
	case model.ViewReadLater:
		return raw.Bool("is_read_later")
	}
	return true
}

func cloneAll(items []source.RawEmail) []source.RawEmail {
	out := make([]source.RawEmail, len(items))
	for i, raw := range items {
		out[i] = maps.Clone(raw)
	}
	return out
}
