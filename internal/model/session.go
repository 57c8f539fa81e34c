// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"
)

// TitleMaxRunes is the number of characters kept when deriving a title from
// the first user message.
const TitleMaxRunes = 25

// SessionSummary is one row of the session sidebar.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`

	// UpdatedAt is Unix milliseconds, the unit the backend emits.
	UpdatedAt int64 `json:"updated_at"`
}

// NewSessionSummary builds a summary stamped with the given time.
func NewSessionSummary(id, title string, at time.Time) SessionSummary {
	return SessionSummary{SessionID: id, Title: title, UpdatedAt: at.UnixMilli()}
}

// UpdatedTime returns UpdatedAt as a time.Time.
func (s SessionSummary) UpdatedTime() time.Time {
	if s.UpdatedAt <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.UpdatedAt)
}

// UnmarshalJSON tolerates a missing title and updated_at encoded as an
// integer, a float or a numeric string.
func (s *SessionSummary) UnmarshalJSON(data []byte) error {
	var aux struct {
		SessionID string          `json:"session_id"`
		Title     string          `json:"title"`
		UpdatedAt json.RawMessage `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.SessionID = aux.SessionID
	s.Title = aux.Title
	if f, ok := parseNumber(aux.UpdatedAt); ok {
		s.UpdatedAt = int64(f)
	} else {
		s.UpdatedAt = 0
	}
	return nil
}

// DeriveTitle computes the provisional sidebar title from the user's text:
// the first 25 characters followed by "..." when the text is longer.
// Characters are Unicode code points, so Hangul is never split.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) > TitleMaxRunes {
		return string(runes[:TitleMaxRunes]) + "..."
	}
	return text
}

// CloneSessions returns a copy of list that never aliases the input.
func CloneSessions(list []SessionSummary) []SessionSummary {
	out := make([]SessionSummary, len(list))
	copy(out, list)
	return out
}
