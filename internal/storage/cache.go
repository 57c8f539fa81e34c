// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/patentchat/internal/model"
)

// =============================================================================
// CACHE KEYS
// =============================================================================

const (
	// KeySessions holds the JSON array of session summaries.
	KeySessions = "chat_sessions"

	// KeySessionsTimestamp holds the decimal Unix-ms time the list was written.
	KeySessionsTimestamp = "chat_sessions_timestamp"

	// HistoryKeyPrefix prefixes every per-session transcript key.
	HistoryKeyPrefix = "chat_history_"

	// DefaultSessionListTTL bounds how long a cached session list is trusted.
	DefaultSessionListTTL = 30 * time.Minute
)

// HistoryKey returns the cache key of a session transcript.
func HistoryKey(sessionID string) string {
	return HistoryKeyPrefix + sessionID
}

// =============================================================================
// CHAT CACHE
// =============================================================================

// ChatCache stores the session list and per-session transcripts in a KV.
// It never reports errors: unreadable or missing data reads as nil and failed
// writes are logged and dropped.
type ChatCache struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

// CacheOption configures a ChatCache.
type CacheOption func(*ChatCache)

// WithTTL overrides the session list TTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ChatCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock, mainly for TTL tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *ChatCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewChatCache creates a cache over kv.
func NewChatCache(kv KV, opts ...CacheOption) *ChatCache {
	c := &ChatCache{
		kv:  kv,
		ttl: DefaultSessionListTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the session list time-to-live.
func (c *ChatCache) TTL() time.Duration {
	return c.ttl
}

// SaveSessionList stores the list together with the current time.
func (c *ChatCache) SaveSessionList(list []model.SessionSummary) {
	if list == nil {
		list = []model.SessionSummary{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		log.Printf("CACHE_ENCODE_FAILED | key=%s error=%v", KeySessions, err)
		return
	}
	c.set(KeySessions, string(data))
	c.set(KeySessionsTimestamp, strconv.FormatInt(c.now().UnixMilli(), 10))
}

// LoadSessionList returns the cached list, or nil when it is missing,
// unparsable or older than the TTL. ignoreTTL skips the age check. A missing
// or unparsable timestamp does not hide the data.
func (c *ChatCache) LoadSessionList(ignoreTTL bool) []model.SessionSummary {
	raw, ok := c.get(KeySessions)
	if !ok {
		return nil
	}

	if !ignoreTTL {
		if ts, ok := c.get(KeySessionsTimestamp); ok {
			if ms, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64); err == nil {
				age := c.now().Sub(time.UnixMilli(ms))
				if age > c.ttl {
					return nil
				}
			}
		}
	}

	var list []model.SessionSummary
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.Printf("CACHE_DECODE_FAILED | key=%s error=%v", KeySessions, err)
		return nil
	}
	return list
}

// SaveHistory stores the transcript of a session.
func (c *ChatCache) SaveHistory(sessionID string, messages []model.Message) {
	if sessionID == "" {
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		log.Printf("CACHE_ENCODE_FAILED | key=%s error=%v", HistoryKey(sessionID), err)
		return
	}
	c.set(HistoryKey(sessionID), string(data))
}

// LoadHistory returns the cached transcript, or nil when absent or unparsable.
func (c *ChatCache) LoadHistory(sessionID string) []model.Message {
	if sessionID == "" {
		return nil
	}
	raw, ok := c.get(HistoryKey(sessionID))
	if !ok {
		return nil
	}
	var messages []model.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		log.Printf("CACHE_DECODE_FAILED | key=%s error=%v", HistoryKey(sessionID), err)
		return nil
	}
	return messages
}

// DeleteHistory removes the cached transcript of a session.
func (c *ChatCache) DeleteHistory(sessionID string) {
	if sessionID == "" {
		return
	}
	c.delete(HistoryKey(sessionID))
}

// ClearAll removes the session list, its timestamp and every transcript.
func (c *ChatCache) ClearAll() {
	c.delete(KeySessions)
	c.delete(KeySessionsTimestamp)

	keys, err := c.kv.Keys(HistoryKeyPrefix)
	if err != nil {
		log.Printf("CACHE_SCAN_FAILED | prefix=%s error=%v", HistoryKeyPrefix, err)
		return
	}
	for _, key := range keys {
		c.delete(key)
	}
	log.Printf("CACHE_CLEARED | histories=%d", len(keys))
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *ChatCache) get(key string) (string, bool) {
	v, ok, err := c.kv.Get(key)
	if err != nil {
		log.Printf("CACHE_READ_FAILED | key=%s error=%v", key, err)
		return "", false
	}
	return v, ok
}

func (c *ChatCache) set(key, value string) {
	if err := c.kv.Set(key, value); err != nil {
		log.Printf("CACHE_WRITE_FAILED | key=%s error=%v", key, err)
	}
}

func (c *ChatCache) delete(key string) {
	if err := c.kv.Delete(key); err != nil {
		log.Printf("CACHE_DELETE_FAILED | key=%s error=%v", key, err)
	}
}
