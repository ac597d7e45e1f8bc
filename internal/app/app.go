package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/inbox"
	"github.com/nhle/newsreader/internal/keys"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
	syncer "github.com/nhle/newsreader/internal/sync"
	"github.com/nhle/newsreader/internal/theme"
	"github.com/nhle/newsreader/internal/ui"
	"github.com/nhle/newsreader/internal/ui/command"
	"github.com/nhle/newsreader/internal/ui/detail"
	"github.com/nhle/newsreader/internal/ui/emaillist"
	helpview "github.com/nhle/newsreader/internal/ui/help"
)

// ViewState represents the current active screen in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
)

// Model is the root Bubble Tea model that manages screen routing,
// layout, and the bridge to the inbox pipeline.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	pipeline     *inbox.Pipeline
	cache        *cache.Manager
	poller       *syncer.Poller
	log          log.FieldLogger

	list        emaillist.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model

	active  model.View
	counts  model.Counts
	ready   bool
	status  string
	failure bool
}

// New creates the root model. start is the view shown first.
func New(p *inbox.Pipeline, cm *cache.Manager, start model.View, logger log.FieldLogger) Model {
	k := keys.DefaultKeyMap()
	if logger == nil {
		logger = log.StandardLogger()
	}
	if start == "" {
		start = model.ViewUnread
	}

	return Model{
		currentView: ViewList,
		keys:        k,
		pipeline:    p,
		cache:       cm,
		log:         logger.WithField("component", "app"),
		list:        emaillist.New(k, 80, 21),
		detail:      detail.New(k, 80, 21),
		helpView:    helpview.New(k, 80, 21),
		commandView: command.New(80, 21),
		active:      start,
	}
}

// WithPoller attaches a background poller that is started by Init.
func (m Model) WithPoller(p *syncer.Poller) Model {
	m.poller = p
	return m
}

// Init starts listening for pipeline updates and activates the first view.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.pipeline.WaitForUpdate(),
		m.activate(m.active),
	}
	if m.poller != nil {
		cmds = append(cmds, m.poller.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.list.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		return m, nil

	case inbox.UpdateMsg:
		m.applySnapshot(msg.Snapshot)
		return m, m.pipeline.WaitForUpdate()

	case activatedMsg:
		if msg.snapshot.View == m.active {
			m.applySnapshot(msg.snapshot)
		}
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case moreLoadedMsg:
		if msg.snapshot.View == m.active {
			m.applySnapshot(msg.snapshot)
		}
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case flagResultMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("id", msg.id).Warn("flag change failed")
			m.setError(msg.err)
		}
		return m, nil

	case countsMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.counts = msg.counts
		return m, nil

	case syncer.SyncResultMsg:
		switch {
		case msg.Error != nil:
			m.setError(msg.Error)
		case msg.NewCount > 0:
			m.counts = msg.Counts
			m.setStatus(fmt.Sprintf("%d new", msg.NewCount))
		default:
			m.counts = msg.Counts
		}
		if m.poller == nil {
			return m, nil
		}
		return m, m.poller.WaitForNextResult()

	case cacheClearedMsg:
		m.setStatus("cache cleared")
		return m, m.refresh()

	case emaillist.SelectedEmailMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetEmail(msg.Email)
		if !msg.Email.Read {
			return m, m.setFlag(msg.Email.ID, model.FlagRead, true)
		}
		return m, nil

	case emaillist.FlagRequestMsg:
		return m, m.setFlag(msg.ID, msg.Flag, msg.Value)

	case emaillist.MoreRequestMsg:
		return m, m.requestMore()

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case helpview.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work regardless of the active
// screen, plus the list-only view switches.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}
	if m.currentView == ViewCommand {
		if key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil, true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true
	}

	if m.currentView != ViewList {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.setStatus("")
		return m, m.refresh(), true
	case key.Matches(msg, m.keys.ViewUnread):
		return m.switchView(model.ViewUnread)
	case key.Matches(msg, m.keys.ViewRead):
		return m.switchView(model.ViewRead)
	case key.Matches(msg, m.keys.ViewAll):
		return m.switchView(model.ViewAll)
	case key.Matches(msg, m.keys.ViewFavorites):
		return m.switchView(model.ViewFavorites)
	case key.Matches(msg, m.keys.ViewReadLater):
		return m.switchView(model.ViewReadLater)
	}
	return m, nil, false
}

func (m Model) switchView(view model.View) (tea.Model, tea.Cmd, bool) {
	if view == m.active {
		return m, nil, true
	}
	m.active = view
	m.setStatus("")
	m.list.SetSnapshot(m.pipeline.Snapshot(view))
	return m, m.activate(view), true
}

// applySnapshot shows s when it belongs to the active view and keeps the
// detail screen in sync with flag changes.
func (m *Model) applySnapshot(s inbox.Snapshot) {
	m.counts = s.Counts
	if s.View != m.active {
		return
	}
	m.list.SetSnapshot(s)

	if e, ok := m.detail.Email(); ok {
		for _, item := range s.Items {
			if item.ID == e.ID {
				m.detail.SetEmail(item)
				break
			}
		}
	}
}

// updateActiveView dispatches the message to the currently active screen.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.list, cmd = m.list.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	tabs := m.layout.RenderTabs(model.Views, m.active)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, tabs, content, statusBar)
}

// renderContent returns the rendered string for the current active screen.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.list.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	if m.counts.Total == 0 {
		return "Newsreader"
	}
	return fmt.Sprintf("Newsreader [%d unread / %d]", m.counts.Unread, m.counts.Total)
}

// syncStatus returns a short string describing the state of the active view.
func (m Model) syncStatus() string {
	s := m.list.Snapshot()
	switch {
	case s.State == inbox.StateLoadingInitial:
		return "loading"
	case s.BackgroundLoading:
		return fmt.Sprintf("syncing older (%d)", len(s.Items))
	case s.Err != nil:
		return "⚠ offline"
	case !s.LastUpdated.IsZero():
		return "updated " + s.LastUpdated.Format(time.Kitchen)
	}
	return "idle"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.status != "" && m.currentView == ViewList {
		if m.failure {
			return theme.ErrorStyle.Render(m.status)
		}
		return m.status
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | m read | f favorite | l later | d trash | j/k scroll"
	default:
		return "q quit | ? help | 1-5 views | m read | f fav | l later | d trash | r refresh"
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.failure = false
}

func (m *Model) setError(err error) {
	if source.IsAuthError(err) {
		m.status = "authentication failed, run 'newsreader configure'"
	} else {
		m.status = err.Error()
	}
	m.failure = true
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	if view, ok := strings.CutPrefix(cmd, "view "); ok {
		v, err := model.ParseView(view)
		if err != nil {
			m.setError(err)
			return nil
		}
		m.active = v
		m.list.SetSnapshot(m.pipeline.Snapshot(v))
		return m.activate(v)
	}

	switch cmd {
	case "refresh":
		return m.refresh()
	case "sync":
		if m.poller != nil {
			m.poller.Trigger()
			m.setStatus("checking for new mail")
			return nil
		}
		return m.refresh()
	case "more":
		return m.requestMore()
	case "counts":
		return m.refreshCounts()
	case "clear cache":
		return m.clearCache()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "quit", "q":
		return tea.Quit
	default:
		m.setError(fmt.Errorf("unknown command %q", cmd))
		return nil
	}
}
