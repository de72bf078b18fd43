package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Prev    key.Binding
	Next    key.Binding
	Repo    key.Binding
	Release key.Binding
	Update  key.Binding
	Cancel  key.Binding
	Help    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous version")),
		Next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next version")),
		Repo:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "repository")),
		Release: key.NewBinding(key.WithKeys("r", "enter"), key.WithHelp("r", "release")),
		Update:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update versions only")),
		Cancel:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "cancel")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Release, k.Update, k.Cancel, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next},
		{k.Repo, k.Release, k.Update, k.Cancel},
	}
}
