// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ErrorPrefix marks synthetic assistant messages that carry a failure instead
// of an answer.
const ErrorPrefix = "⚠ "

// Message is a single chat entry. Messages are values and are never edited
// after creation; a session's transcript only grows by append.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Timestamp is Unix seconds as emitted by the backend. Zero when the
	// message was created locally.
	Timestamp float64 `json:"timestamp,omitempty"`

	// Error is set on synthetic assistant messages describing a failed send.
	Error bool `json:"error,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewErrorMessage creates an assistant-role message that shows a failure
// inline in the transcript.
func NewErrorMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: ErrorPrefix + text, Error: true}
}

// IsUser returns true if this is a user message.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant returns true if this is an assistant message.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// Time converts Timestamp to a time.Time. Returns the zero time when unset.
func (m Message) Time() time.Time {
	if m.Timestamp <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(m.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// UnmarshalJSON accepts timestamps encoded as numbers or numeric strings and
// ignores anything else rather than rejecting the whole history.
func (m *Message) UnmarshalJSON(data []byte) error {
	var aux struct {
		Role      Role            `json:"role"`
		Content   string          `json:"content"`
		Timestamp json.RawMessage `json:"timestamp"`
		Error     bool            `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Role = aux.Role
	m.Content = aux.Content
	m.Error = aux.Error
	m.Timestamp, _ = parseNumber(aux.Timestamp)
	return nil
}

// CloneMessages returns a copy of msgs that never aliases the input.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// parseNumber decodes a JSON number or a quoted numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
