// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/session"
)

// State is a snapshot of the conversation screen. Snapshots handed out by the
// ViewModel are never mutated afterwards.
type State struct {
	// CurrentSessionID is the server id of the open conversation, or "" while
	// the user is on an unsent draft.
	CurrentSessionID string

	// DraftKey identifies the draft shown when CurrentSessionID is "".
	DraftKey string

	// Messages is the transcript of the open conversation.
	Messages []model.Message

	// Sessions is the sidebar registry, most recently updated first.
	Sessions session.List

	// Status tracks the last history load.
	Status model.LoadingStatus

	// Loading is true while a send is in flight or a history load has
	// nothing on screen yet.
	Loading bool

	sending  int  // sends awaiting a reply
	fetching bool // history load pending with no cached paint
}

// CurrentKey returns the key the transcript is rendered under: the session id,
// or the draft key for a new conversation.
func (s State) CurrentKey() string {
	if s.CurrentSessionID != "" {
		return s.CurrentSessionID
	}
	return s.DraftKey
}

// IsDraft reports whether the open conversation has no server id yet.
func (s State) IsDraft() bool {
	return s.CurrentSessionID == ""
}

// Sending reports the number of sends awaiting a reply.
func (s State) Sending() int {
	return s.sending
}

// settle recomputes derived fields after a transition.
func (s State) settle() State {
	if s.sending < 0 {
		s.sending = 0
	}
	if s.Messages == nil {
		s.Messages = []model.Message{}
	}
	s.Loading = s.sending > 0 || s.fetching
	return s
}

// withMessage returns a new transcript with m appended. The input slice is
// shared with published snapshots and must not be written to.
func withMessage(msgs []model.Message, m model.Message) []model.Message {
	out := make([]model.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	return append(out, m)
}
