package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for the viewer.
type KeyMap struct {
	Back     key.Binding
	Forward  key.Binding
	PageBack key.Binding
	PageFwd  key.Binding
	YearBack key.Binding
	YearFwd  key.Binding
	Oldest   key.Binding
	Latest   key.Binding
	Retry    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default keybinding configuration.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "week back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "week fwd"),
		),
		PageBack: key.NewBinding(
			key.WithKeys("pgup", "b"),
			key.WithHelp("pgup", "month back"),
		),
		PageFwd: key.NewBinding(
			key.WithKeys("pgdown", "f"),
			key.WithHelp("pgdn", "month fwd"),
		),
		YearBack: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "year back"),
		),
		YearFwd: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "year fwd"),
		),
		Oldest: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "oldest"),
		),
		Latest: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "latest"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry failed"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// footerBindings is the hint line order.
func footerBindings(km KeyMap) []key.Binding {
	return []key.Binding{km.Back, km.Forward, km.YearBack, km.YearFwd, km.Oldest, km.Latest, km.Retry, km.Quit}
}
