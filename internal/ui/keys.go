package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap implements help.KeyMap for the footer.
type keyMap struct {
	Quit    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	Tab5    key.Binding
	Sort    key.Binding
	Top     key.Binding
	Refresh key.Binding
	Help    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Sort, k.Top, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4, k.Tab5},
		{k.NextTab, k.PrevTab},
		{k.Sort, k.Top, k.Refresh, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next tab")),
	PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev tab")),
	Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "overview")),
	Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "cpu")),
	Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "memory")),
	Tab4:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "network")),
	Tab5:    key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "processes")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle sort")),
	Top:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "top 10/20/50")),
	Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}
