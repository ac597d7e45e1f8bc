package inbox

import (
	tea "github.com/charmbracelet/bubbletea"
)

// UpdateMsg is a tea.Msg carrying a pipeline snapshot.
type UpdateMsg struct {
	Snapshot
}

// WaitForUpdate returns a tea.Cmd that waits for the next snapshot.
// Call it again after handling each UpdateMsg to keep listening. It
// yields nil once the pipeline is closed.
func (p *Pipeline) WaitForUpdate() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-p.updates
		if !ok {
			return nil
		}
		return UpdateMsg{Snapshot: snap}
	}
}
