package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding. It implements help.KeyMap.
type keyMap struct {
	Quit   key.Binding
	Search key.Binding
	Up     key.Binding
	Down   key.Binding
	Switch key.Binding
	Open   key.Binding
	Close  key.Binding
	Rate   key.Binding
	Add    key.Binding
	Delete key.Binding
	Help   key.Binding
	Debug  key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Switch: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "results/watched")),
	Open:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	Rate: key.NewBinding(
		key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9", "0"),
		key.WithHelp("1-0", "rate"),
	),
	Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to list")),
	Delete: key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Debug:  key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "debug")),
}

// ShortHelp returns the bindings shown in the status bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Open, k.Rate, k.Add, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped into columns.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Up, k.Down, k.Switch},
		{k.Open, k.Close, k.Rate, k.Add, k.Delete},
		{k.Help, k.Debug, k.Quit},
	}
}

// ratingFor maps a rating key to its value: "1"-"9" as-is, "0" as 10.
func ratingFor(s string) (float64, bool) {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	if s[0] == '0' {
		return 10, true
	}
	return float64(s[0] - '0'), true
}
