// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the session-aware chat view-model.
//
// A ViewModel owns the visible conversation state: the open session (or
// draft), its transcript, the session registry and the load status. It talks
// to the backend through gateway.Gateway and keeps storage.ChatCache in step
// so switching conversations paints instantly.
//
// # Key Types
//
//   - ViewModel: operations and change notification
//   - State: immutable snapshot handed to the presentation layer
//
// # Concurrency
//
// Every operation may run on its own goroutine. Gateway calls never hold the
// lock, and results are applied as pure State transitions. SendMessage
// captures its target conversation when it starts; SelectSession and
// RefreshSessions drop results that a later call superseded.
//
// # Usage
//
//	vm := conversation.New(gw, cache)
//	states, cancel := vm.Subscribe()
//	defer cancel()
//
//	go vm.RefreshSessions(ctx)
//	answer := vm.SendMessage(ctx, "전고체 배터리 관련 특허 찾아줘")
package conversation
