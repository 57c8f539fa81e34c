// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is an in-memory stand-in for the chatbot backend.
//
// It serves the same routes as the production service (ask, sessions,
// history, delete) under a configurable base path, so the TUI can be run and
// tested without the search and generation stack. Answers come from a
// pluggable Responder; latency and failure injection exercise the client's
// timeout and error paths.
//
// # Usage
//
//	err := devserver.Start(ctx, devserver.StartOpts{
//	    Addr:    "127.0.0.1:8000",
//	    Options: devserver.Options{Latency: 2 * time.Second},
//	    Out:     os.Stdout,
//	})
package devserver
