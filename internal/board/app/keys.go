package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the board.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	History key.Binding
	Feed    key.Binding
	Refresh key.Binding
	Escape  key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev table"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next table"),
		),
		History: key.NewBinding(
			key.WithKeys("enter", "h"),
			key.WithHelp("h", "table history"),
		),
		Feed: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "announcements"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
