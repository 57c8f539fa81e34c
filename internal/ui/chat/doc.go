// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the terminal chat screen for patentchat.

The screen is a Bubble Tea model laid out as a session sidebar, a transcript
viewport, an activity line and a text input. It owns no conversation state:
every change arrives from the view-model subscription as a StateChangedMsg,
and user actions are forwarded to the view-model from tea.Cmds so blocking
network calls never stall the event loop.

# Key Types

  - Model: the Bubble Tea model
  - ViewModel: the subset of conversation.ViewModel the screen drives
  - SendFunc: submits a question; injected so callers can wrap sends
  - KeyMap: keyboard bindings

# Usage

	vm := conversation.New(gw, cache)
	m := chat.New(styles.NewTheme(cfg.UI.Theme), vm, vm.SendMessage).
		WithMarkdown(cfg.UI.Markdown).
		WithSidebarWidth(cfg.UI.SidebarWidth)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Printf("TUI_FAILED | error=%v", err)
	}
*/
package chat
