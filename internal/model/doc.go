// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// These are the neutral shapes shared by the cache, the gateway, the
// view-model and the presentation adapters. They serialize to the same JSON
// the patent assistant backend speaks.
//
// # Key Types
//
//   - Message: role, content and optional backend timestamp
//   - SessionSummary: session id, title and last-update time for the sidebar
//   - LoadingStatus: idle, loading, timeout, error or success
//   - Role: user or assistant
//
// # Usage
//
//	msg := model.NewUserMessage("특허검색: 배터리 분리막")
//	title := model.DeriveTitle(msg.Content)
//	summary := model.NewSessionSummary("sess_1", title, time.Now())
package model
