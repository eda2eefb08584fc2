// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the watch TUI.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Pause key.Binding
	Quit  key.Binding
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
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
