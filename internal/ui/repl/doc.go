// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repl provides a line-oriented chat loop for terminals where the
// full-screen TUI is unwanted or unavailable.
//
// Plain lines are sent as questions. Slash commands manage conversations:
//
//	/new              start a new conversation
//	/sessions         list conversations
//	/open <n|id>      open a conversation by list number or id
//	/delete <n|id>    delete a conversation
//	/refresh          reload the list from the server
//	/help             show commands
//	/quit             exit
//
// Line editing and input history come from github.com/peterh/liner.
package repl
