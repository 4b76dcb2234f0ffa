package common

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the set of key bindings shared by the views in
// internal/tui.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Skip   key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the bindings used by the install-progress view.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip current task"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "cancel remaining tasks"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
