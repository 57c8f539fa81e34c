// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the patentchat command line.
//
// The root command opens the full-screen chat. Line-mode commands share one
// wiring path (newApp) that loads the configuration, builds the HTTP gateway,
// opens the configured cache backend and creates the conversation view-model.
//
// # Commands
//
//   - tui (default): bubbletea chat screen; falls back to repl without a TTY
//   - repl: line-by-line chat
//   - ask, sessions, history, delete, export: one-shot operations
//   - cache clear|path, config path|show|init|set-token
//   - devserver: in-memory backend for local testing
//   - version
//
// Every line-mode command accepts --json and prints a JSONResponse envelope.
//
// # Output Control
//
// NO_COLOR disables colors and FORCE_COLOR forces them; otherwise colors
// follow whether stdout is a terminal. Diagnostics are logged only with
// --verbose, except in the TUI, which always logs to the configured file.
package cli
