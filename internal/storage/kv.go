// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// KEY-VALUE PORT
// =============================================================================

// KV is the persistence port the chat cache is built on. Values are
// serialized JSON documents; keys come from a fixed key space so callers never
// collide across sessions.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys lists every stored key starting with prefix.
	Keys(prefix string) ([]string, error)
}

// ErrClosed is returned by backends that were used after Close.
var ErrClosed = errors.New("storage: backend closed")

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryKV is an in-process KV. It backs tests and the "memory" cache backend
// where nothing should survive a restart.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes Set and Delete fail, emulating a full or disabled
	// browser-style storage area.
	FailWrites bool
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// errWriteRejected is returned when FailWrites is set.
var errWriteRejected = errors.New("storage: write rejected")

// Get implements KV.
func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements KV.
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteRejected
	}
	m.data[key] = value
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errWriteRejected
	}
	delete(m.data, key)
	return nil
}

// Keys implements KV. Keys are returned sorted.
func (m *MemoryKV) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
