// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the ordered registry of chat sessions shown in
// the sidebar.
//
// # Key Types
//
//   - List: immutable slice wrapper with pure Upsert, Remove and Replace
//
// # Usage
//
//	list := session.List{}.Replace(fromServer)
//	list = list.Upsert(model.NewSessionSummary(id, title, time.Now()))
//	list = list.Remove(deletedID)
package session
