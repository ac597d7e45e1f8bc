// Package sync polls the remote in the background while the TUI runs,
// refreshing the active view when new mail shows up in the counts.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus describes the last poll.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Counts   model.Counts
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a poll completes.
type SyncResultMsg struct {
	Counts model.Counts
	// NewCount is how many items arrived since the previous poll.
	NewCount  int
	Error     error
	AuthError bool
}

// pollTimeout bounds a single poll including the view refresh.
const pollTimeout = 30 * time.Second

// Poller periodically re-reads the mailbox counts and refreshes the
// active view when the total grows.
type Poller struct {
	pipeline *inbox.Pipeline
	interval time.Duration
	log      log.FieldLogger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	done      chan struct{}

	mu       gosync.Mutex
	running  bool
	status   SyncStatus
	baseline int
	seen     bool
}

// New creates a Poller. A non-positive interval defaults to two minutes.
func New(p *inbox.Pipeline, interval time.Duration, logger log.FieldLogger) *Poller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Poller{
		pipeline:  p,
		interval:  interval,
		log:       logger.WithField("component", "poller"),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a tea.Cmd that waits
// for the first result. Calling Start twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.run()
	return p.waitForResult()
}

// Stop halts the polling goroutine and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()
	<-p.done
}

// Trigger requests an immediate poll.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// a poll is already queued
	}
}

// Status returns the outcome of the last poll.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll fetches fresh counts and refreshes the active view when the
// mailbox total grew. The first poll only records the baseline.
func (p *Poller) poll() {
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	counts, err := p.pipeline.RefreshCounts(ctx, true)
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.WithError(err).Warn("poll failed")
		p.sendResult(SyncResultMsg{Error: err, AuthError: source.IsAuthError(err)})
		return
	}

	p.mu.Lock()
	newCount := 0
	if p.seen && counts.Total > p.baseline {
		newCount = counts.Total - p.baseline
	}
	p.baseline = counts.Total
	p.seen = true
	p.mu.Unlock()

	if newCount > 0 {
		p.log.WithField("new", newCount).Info("new mail, refreshing active view")
		if _, err := p.pipeline.Refresh(ctx); err != nil && !errors.Is(err, inbox.ErrNoActiveView) {
			p.setStatus(SyncError, err)
			p.sendResult(SyncResultMsg{Counts: counts, NewCount: newCount, Error: err, AuthError: source.IsAuthError(err)})
			return
		}
	}

	p.mu.Lock()
	p.status = SyncStatus{State: SyncIdle, LastSync: time.Now(), Counts: counts}
	p.mu.Unlock()
	p.sendResult(SyncResultMsg{Counts: counts, NewCount: newCount})
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
	p.status.Error = err
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		return <-p.resultCh
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call it after handling a SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
