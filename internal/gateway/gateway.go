// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"

	"github.com/jeranaias/patentchat/internal/model"
)

// Gateway is the remote chatbot API as seen by the conversation view-model.
//
// ListSessions and GetHistory always return a non-nil slice; on failure it is
// empty and err says why. DeleteSession folds every failure into false.
type Gateway interface {
	// SendMessage asks a question. A nil sessionID starts a new conversation.
	SendMessage(ctx context.Context, text string, sessionID *string) (Reply, error)

	// ListSessions returns the user's conversations.
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)

	// GetHistory returns the transcript of one conversation.
	GetHistory(ctx context.Context, sessionID string) ([]model.Message, error)

	// DeleteSession removes a conversation on the server.
	DeleteSession(ctx context.Context, sessionID string) bool
}

// Reply is the server's answer to a question.
type Reply struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// askRequest is the body of POST {base}/ask.
type askRequest struct {
	Query     string  `json:"query"`
	SessionID *string `json:"session_id"`
}
