package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit key.Binding
	Back key.Binding

	// Navigation
	Cards    key.Binding
	Invoices key.Binding

	// Actions
	Select    key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	New       key.Binding
	AddTime   key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Pick      key.Binding
	Refresh   key.Binding
	Filter    key.Binding

	// Invoice status
	MarkDraft key.Binding
	MarkSent  key.Binding
	MarkPaid  key.Binding

	Confirm key.Binding

	// Movement
	Up   key.Binding
	Down key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:      key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Cards:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "board")),
	Invoices:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invoices")),
	Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	ToggleAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
	New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	AddTime:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "log time")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:    key.NewBinding(key.WithKeys("delete", "X"), key.WithHelp("X", "delete")),
	Pick:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pick board")),
	Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	MarkDraft: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "draft")),
	MarkSent:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sent")),
	MarkPaid:  key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "paid")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}
