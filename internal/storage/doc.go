// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local chat cache for patentchat.
//
// The cache keeps the session list (with a write timestamp and TTL) and one
// transcript per session so the UI can paint instantly before the server
// answers. All reads degrade to nil and all write failures are logged.
//
// # Key Types
//
//   - KV: key-value port implemented by MemoryKV, FileKV and SQLiteKV
//   - ChatCache: typed session list and transcript access over a KV
//   - Watcher: fsnotify watcher reporting keys changed by other processes
//
// # Usage
//
//	kv, err := storage.OpenSQLiteKV(filepath.Join(dir, "cache.db"))
//	cache := storage.NewChatCache(kv)
//	cache.SaveHistory("sess_1", messages)
//	cached := cache.LoadHistory("sess_1")
//
// # Keys
//
// chat_sessions, chat_sessions_timestamp and chat_history_<sessionId>.
package storage
