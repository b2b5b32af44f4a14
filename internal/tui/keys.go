package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextFile key.Binding
	AllFiles key.Binding
	Apply    key.Binding
	Suggest  key.Binding
	Copy     key.Binding
	Goto     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	NextFile: key.NewBinding(
		key.WithKeys("f", "tab"),
		key.WithHelp("f/tab", "filter file"),
	),
	AllFiles: key.NewBinding(
		key.WithKeys("F"),
		key.WithHelp("F", "all files"),
	),
	Apply: key.NewBinding(
		key.WithKeys("a", "enter"),
		key.WithHelp("a", "apply fix"),
	),
	Suggest: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "apply suggestion"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c", "y"),
		key.WithHelp("c", "copy"),
	),
	Goto: key.NewBinding(
		key.WithKeys("g", "o"),
		key.WithHelp("g", "go to location"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "close"),
	),
}
