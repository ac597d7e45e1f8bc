package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/model"
)

// activatedMsg is sent after a view has been activated.
type activatedMsg struct {
	snapshot inbox.Snapshot
	err      error
}

// moreLoadedMsg is sent after a synchronous request for more pages.
type moreLoadedMsg struct {
	snapshot inbox.Snapshot
	err      error
}

// flagResultMsg is sent after a flag change reached the remote.
type flagResultMsg struct {
	id   string
	flag model.Flag
	err  error
}

// countsMsg carries freshly fetched mailbox counts.
type countsMsg struct {
	counts model.Counts
	err    error
}

// cacheClearedMsg is sent after every cache entry has been dropped.
type cacheClearedMsg struct{}

// activate switches the pipeline to view.
func (m *Model) activate(view model.View) tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		snap, err := p.Activate(context.Background(), view)
		return activatedMsg{snapshot: snap, err: err}
	}
}

// refresh reloads the active view from the remote.
func (m *Model) refresh() tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		snap, err := p.Refresh(context.Background())
		return activatedMsg{snapshot: snap, err: err}
	}
}

// requestMore asks the pipeline for the next batch of pages.
func (m *Model) requestMore() tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		snap, err := p.RequestMore(context.Background())
		return moreLoadedMsg{snapshot: snap, err: err}
	}
}

// setFlag applies a flag change locally and sends it to the remote.
func (m *Model) setFlag(id string, flag model.Flag, value bool) tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		err := p.SetFlag(context.Background(), id, flag, value)
		return flagResultMsg{id: id, flag: flag, err: err}
	}
}

// refreshCounts fetches mailbox counts, bypassing the cache.
func (m *Model) refreshCounts() tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		c, err := p.RefreshCounts(context.Background(), true)
		return countsMsg{counts: c, err: err}
	}
}

// clearCache drops every cache entry, durable ones included.
func (m *Model) clearCache() tea.Cmd {
	cm := m.cache
	return func() tea.Msg {
		cm.InvalidateAll()
		return cacheClearedMsg{}
	}
}
