package inbox

import (
	"slices"
	"time"

	"github.com/nhle/newsreader/internal/model"
)

// State is the foreground state of a view.
type State int

const (
	StateEmpty State = iota
	StateLoadingInitial
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoadingInitial:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// Background is the catch-up state of a ready view.
type Background int

const (
	BackgroundIdle Background = iota
	BackgroundCatchingUp
)

func (b Background) String() string {
	if b == BackgroundCatchingUp {
		return "catching-up"
	}
	return "idle"
}

// Snapshot is a copy of one view's state handed to callers. It never
// aliases pipeline internals.
type Snapshot struct {
	View  model.View
	Items []model.Email

	// HasMore reports whether further pages may exist.
	HasMore bool

	// BackgroundLoading is true while a catch-up loop runs for the view.
	BackgroundLoading bool

	State      State
	Background Background

	// Cursor is the next page the view will request.
	Cursor int

	LastUpdated time.Time
	Counts      model.Counts

	// Err is the last initial-load failure; it clears on success.
	Err error
}

// viewState is the per-view cache. It is only touched with Pipeline.mu held.
type viewState struct {
	view        model.View
	items       []model.Email
	cursor      int
	hasMore     bool
	lastUpdated time.Time
	state       State
	background  Background
	lastErr     error

	// loop owns the view's cursor while non-nil: an initial load or a
	// catch-up loop. Results from any other handle are discarded.
	loop *loopHandle
}

func newViewState(view model.View) *viewState {
	return &viewState{view: view, cursor: 1}
}

// reset empties the view ahead of a fresh initial load.
func (vs *viewState) reset() {
	vs.items = nil
	vs.cursor = 1
	vs.hasMore = false
	vs.lastUpdated = time.Time{}
	vs.state = StateEmpty
	vs.background = BackgroundIdle
}

func (vs *viewState) fresh(now time.Time, window time.Duration) bool {
	return vs.state == StateReady && len(vs.items) > 0 && now.Sub(vs.lastUpdated) <= window
}

func (vs *viewState) snapshot(counts model.Counts) Snapshot {
	return Snapshot{
		View:              vs.view,
		Items:             slices.Clone(vs.items),
		HasMore:           vs.hasMore,
		BackgroundLoading: vs.background == BackgroundCatchingUp,
		State:             vs.state,
		Background:        vs.background,
		Cursor:            vs.cursor,
		LastUpdated:       vs.lastUpdated,
		Counts:            counts,
		Err:               vs.lastErr,
	}
}
