package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard key bindings.
type KeyMap struct {
	Quit        key.Binding
	Tab         key.Binding
	Up          key.Binding
	Down        key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Enter       key.Binding
	Escape      key.Binding
	Filter      key.Binding
	FocusAlerts key.Binding
	FocusEvents key.Binding
	Daily       key.Binding
	Weekly      key.Binding
	Monthly     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Tab:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		ScrollUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		ScrollDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Escape:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Filter:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		FocusAlerts: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "alerts")),
		FocusEvents: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "events")),
		Daily:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "daily")),
		Weekly:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "weekly")),
		Monthly:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "monthly")),
	}
}
