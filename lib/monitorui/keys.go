// Copyright 2026 The Rewind Authors
// SPDX-License-Identifier: Apache-2.0

package monitorui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the monitor TUI.
type KeyMap struct {
	// Timeline navigation.
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Session switching.
	NextSession key.Binding
	PrevSession key.Binding

	// Time travel.
	Jump   key.Binding // Jump the application to the selected state.
	Commit key.Binding // Make the current head the new baseline.
	Reset  key.Binding // Roll back to the baseline.

	// Archives.
	Export key.Binding // Write the session history to an archive file.
	Import key.Binding // Load the newest archive back into the session.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "baseline"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "head"),
	),
	NextSession: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next session"),
	),
	PrevSession: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "prev session"),
	),
	Jump: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "jump"),
	),
	Commit: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "commit"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Import: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "import"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
