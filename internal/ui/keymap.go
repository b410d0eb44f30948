package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the dashboard
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Trading
	Long     key.Binding
	Short    key.Binding
	LevUp    key.Binding
	LevDown  key.Binding
	CloseUp  key.Binding
	CloseDn  key.Binding
	ClosePos key.Binding

	// Market
	Timeframe key.Binding
	Refresh   key.Binding

	// Logs
	ToggleLogs key.Binding
	LogsUp     key.Binding
	LogsDown   key.Binding
}

// DefaultKeyMap returns the default key bindings. Digits and '.' are left
// unbound since they go to the margin input.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),

		Long: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "long"),
		),
		Short: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "short"),
		),
		LevUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "leverage up"),
		),
		LevDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "leverage down"),
		),
		CloseUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "close % up"),
		),
		CloseDn: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "close % down"),
		),
		ClosePos: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close position"),
		),

		Timeframe: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "timeframe"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),

		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "logs"),
		),
		LogsUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll logs"),
		),
		LogsDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll logs"),
		),
	}
}

// ShortHelp returns the bindings shown in the help bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Long, k.Short, k.LevUp, k.LevDown, k.Timeframe, k.ToggleLogs, k.Help, k.Quit}
}

// ContextualHelp adds the close controls while a position is open.
func (k KeyMap) ContextualHelp(hasPosition bool) []key.Binding {
	if !hasPosition {
		return k.ShortHelp()
	}
	return []key.Binding{k.Long, k.Short, k.LevUp, k.LevDown, k.CloseDn, k.CloseUp, k.ClosePos, k.Timeframe, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Long, k.Short, k.LevUp, k.LevDown},
		{k.CloseDn, k.CloseUp, k.ClosePos},
		{k.Timeframe, k.Refresh},
		{k.ToggleLogs, k.LogsUp, k.LogsDown, k.Help, k.Quit},
	}
}
