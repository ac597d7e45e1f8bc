package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh of the active view
	Refresh key.Binding

	// Load the next batch of pages
	More key.Binding

	// Views
	ViewUnread    key.Binding
	ViewRead      key.Binding
	ViewAll       key.Binding
	ViewFavorites key.Binding
	ViewReadLater key.Binding

	// Flag actions
	ToggleRead      key.Binding
	ToggleFavorite  key.Binding
	ToggleReadLater key.Binding
	Trash           key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		More: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G/end", "load more"),
		),
		ViewUnread: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "unread"),
		),
		ViewRead: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "read"),
		),
		ViewAll: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "all"),
		),
		ViewFavorites: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "favorites"),
		),
		ViewReadLater: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "read later"),
		),
		ToggleRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "toggle read"),
		),
		ToggleFavorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle favorite"),
		),
		ToggleReadLater: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle read later"),
		),
		Trash: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "trash"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Refresh,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Command, k.Help, k.Refresh, k.More},
		{k.ViewUnread, k.ViewRead, k.ViewAll, k.ViewFavorites, k.ViewReadLater},
		{k.ToggleRead, k.ToggleFavorite, k.ToggleReadLater, k.Trash},
	}
}
