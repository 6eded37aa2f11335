package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Delete   key.Binding
	Add      key.Binding
	Edit     key.Binding
	Upload   key.Binding
	More     key.Binding
	Sort     key.Binding
	Reload   key.Binding
	Quit     key.Binding
	Submit   key.Binding
	Next     key.Binding
	Cancel   key.Binding
	Left     key.Binding
	Right    key.Binding
	FormHelp []key.Binding
}

var keys = newKeyMap()

func newKeyMap() keyMap {
	k := keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Upload: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload url")),
		More:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "load more")),
		Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort by due date")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Left:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "priority")),
		Right:  key.NewBinding(key.WithKeys("right")),
	}
	k.FormHelp = []key.Binding{k.Submit, k.Next, k.Left, k.Cancel}
	return k
}

// ShortHelp は一覧画面のヘルプです。
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Edit, k.Delete, k.Add, k.Upload, k.More, k.Sort, k.Quit}
}

// FullHelp は使いません。
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
