package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PanLeft  key.Binding
	PanRight key.Binding
	MaxLeft  key.Binding
	MaxRight key.Binding
	MinLeft  key.Binding
	MinRight key.Binding
	Preset   key.Binding
	Follow   key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PanLeft, k.PanRight, k.Preset, k.Follow, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PanLeft, k.PanRight, k.MinLeft, k.MinRight, k.MaxLeft, k.MaxRight},
		{k.Preset, k.Follow, k.Refresh},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	PanLeft:  key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "pan left")),
	PanRight: key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "pan right")),
	MaxLeft:  key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "end earlier")),
	MaxRight: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "end later")),
	MinLeft:  key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "start earlier")),
	MinRight: key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "start later")),
	Preset: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
		key.WithHelp("1-9", "range preset"),
	),
	Follow:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow live")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
