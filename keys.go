package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for glimpsh. Anything not bound here is
// typed into the focused pane.
type KeyMap struct {
	// Overlays
	ToggleDebug    key.Binding
	CommandPalette key.Binding
	CyclePane      key.Binding
	ClosePane      key.Binding
	Help           key.Binding
	Quit           key.Binding

	// Manual focus
	FocusPane key.Binding

	// Simulated gaze (--gaze test)
	GazeUp    key.Binding
	GazeDown  key.Binding
	GazeLeft  key.Binding
	GazeRight key.Binding
}

// DefaultKeyMap provides the default keybindings
var DefaultKeyMap = func() KeyMap {
	cfg := DefaultConfig()
	return cfg.ToKeyMap()
}()

// ShortHelp returns keybindings for the short help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FocusPane, k.CommandPalette, k.ToggleDebug, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.FocusPane, k.CommandPalette, k.ToggleDebug},
		{k.CyclePane, k.ClosePane},
		{k.GazeUp, k.GazeDown, k.GazeLeft, k.GazeRight},
		{k.Help, k.Quit},
	}
}

// FocusIndex returns the pane addressed by a FocusPane key: the Nth key
// in the binding focuses pane N. It returns -1 for any other key.
func (k KeyMap) FocusIndex(msg string) int {
	if !k.FocusPane.Enabled() {
		return -1
	}
	for i, s := range k.FocusPane.Keys() {
		if s == msg {
			return i
		}
	}
	return -1
}
