// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sort"

	"github.com/jeranaias/patentchat/internal/model"
)

// List is an immutable, ordered session registry, most recently updated
// first. Every operation returns a new List; the receiver is never changed.
// The zero value is an empty list.
type List struct {
	items []model.SessionSummary
}

// NewList returns a list holding a copy of items in the given order.
func NewList(items []model.SessionSummary) List {
	return List{items: model.CloneSessions(items)}
}

// Len returns the number of sessions.
func (l List) Len() int {
	return len(l.items)
}

// Items returns a copy of the sessions in order. It is never nil.
func (l List) Items() []model.SessionSummary {
	out := make([]model.SessionSummary, len(l.items))
	copy(out, l.items)
	return out
}

// At returns the i-th session.
func (l List) At(i int) model.SessionSummary {
	return l.items[i]
}

// Find returns the session with id.
func (l List) Find(id string) (model.SessionSummary, bool) {
	if i := l.Index(id); i >= 0 {
		return l.items[i], true
	}
	return model.SessionSummary{}, false
}

// Index returns the position of id, or -1.
func (l List) Index(id string) int {
	for i, s := range l.items {
		if s.SessionID == id {
			return i
		}
	}
	return -1
}

// Upsert drops any entry with the same id and puts summary first.
func (l List) Upsert(summary model.SessionSummary) List {
	out := make([]model.SessionSummary, 0, len(l.items)+1)
	out = append(out, summary)
	for _, s := range l.items {
		if s.SessionID != summary.SessionID {
			out = append(out, s)
		}
	}
	return List{items: out}
}

// Remove drops the entry with id. Removing an unknown id returns an equal list.
func (l List) Remove(id string) List {
	out := make([]model.SessionSummary, 0, len(l.items))
	for _, s := range l.items {
		if s.SessionID != id {
			out = append(out, s)
		}
	}
	return List{items: out}
}

// Replace returns the authoritative list from the server, ordered by
// updated_at descending. Ties keep the server's order. Duplicate ids keep
// their first occurrence.
func (l List) Replace(items []model.SessionSummary) List {
	seen := make(map[string]bool, len(items))
	out := make([]model.SessionSummary, 0, len(items))
	for _, s := range items {
		if s.SessionID == "" || seen[s.SessionID] {
			continue
		}
		seen[s.SessionID] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return List{items: out}
}
