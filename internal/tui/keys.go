package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Up      key.Binding
	Down    key.Binding
	Explain key.Binding
	Onboard key.Binding
	Back    key.Binding
	Submit  key.Binding
	Next    key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up", "previous client")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down", "next client")),
	Explain: key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "explain")),
	Onboard: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new client")),
	Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
}
