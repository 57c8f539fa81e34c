// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the HTTP client for the patent chatbot backend.
//
// # Endpoints
//
//   - POST {base}/ask            {query, session_id|null} -> {answer, session_id}
//   - GET  {base}/sessions       -> SessionSummary[] | {sessions: [...]}
//   - GET  {base}/sessions/{id}  -> Message[] | {messages: [...]}
//   - DELETE {base}/sessions/{id} -> {deleted} | any 2xx
//
// # Errors
//
// Every failure is a *Error whose message can be shown to the user as is:
//
//	Chatbot server error (500): boom
//	Chatbot server connection failed: connection refused
//	An unknown error occurred while requesting the chatbot.
//
// # Usage
//
//	gw := gateway.New("http://127.0.0.1:8000").WithToken(token)
//	reply, err := gw.SendMessage(ctx, "전고체 배터리 특허 찾아줘", nil)
package gateway
