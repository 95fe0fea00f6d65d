package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Play      key.Binding
	PlayAll   key.Binding
	Mark      key.Binding
	PlayRange key.Binding
	LoopMore  key.Binding
	LoopLess  key.Binding
	Stop      key.Binding
	Memorized key.Binding
	MemoRange key.Binding
	Note      key.Binding
	Save      key.Binding
	Cancel    key.Binding
	NextChap  key.Binding
	PrevChap  key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first verse")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last verse")),
		Play:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play verse")),
		PlayAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "play chapter")),
		Mark:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "mark range start")),
		PlayRange: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "play range")),
		LoopMore:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more repeats")),
		LoopLess:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer repeats")),
		Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Memorized: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "memorized")),
		MemoRange: key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "memorized range")),
		Note:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit note")),
		Save:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save note")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		NextChap:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next chapter")),
		PrevChap:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous chapter")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.PlayAll, k.Mark, k.PlayRange, k.Stop, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Play, k.PlayAll, k.Mark, k.PlayRange, k.Stop},
		{k.LoopMore, k.LoopLess, k.Memorized, k.MemoRange, k.Note},
		{k.NextChap, k.PrevChap, k.Help, k.Quit},
	}
}
