// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/patentchat/internal/gateway"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/session"
	"github.com/jeranaias/patentchat/internal/storage"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultWatchdogTimeout is how long a history load may stay "loading"
	// before the status switches to "timeout".
	DefaultWatchdogTimeout = 10 * time.Second

	// DraftKeyPrefix prefixes locally generated keys of unsent conversations.
	DraftKeyPrefix = "draft-"
)

// NewDraftKey returns a fresh draft key.
func NewDraftKey() string {
	return DraftKeyPrefix + uuid.NewString()
}

// =============================================================================
// VIEW MODEL
// =============================================================================

// ViewModel owns the conversation state and coordinates the gateway, the
// cache and the session registry. All methods are safe for concurrent use;
// gateway calls are made without holding the lock, and each operation applies
// its result as a single State transition.
type ViewModel struct {
	gw    gateway.Gateway
	cache *storage.ChatCache

	now             func() time.Time
	newDraftKey     func() string
	watchdogTimeout time.Duration

	mu       sync.Mutex
	state    State
	subs     map[int]chan State
	nextSub  int
	watchdog *time.Timer
	closed   bool

	// Generations discard results of superseded loads.
	selectGen  atomic.Uint64
	refreshGen atomic.Uint64
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithClock replaces the wall clock used for timestamps and registry entries.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) {
		if now != nil {
			vm.now = now
		}
	}
}

// WithWatchdogTimeout overrides DefaultWatchdogTimeout.
func WithWatchdogTimeout(d time.Duration) Option {
	return func(vm *ViewModel) {
		if d > 0 {
			vm.watchdogTimeout = d
		}
	}
}

// WithDraftKeyFunc replaces the draft key generator.
func WithDraftKeyFunc(fn func() string) Option {
	return func(vm *ViewModel) {
		if fn != nil {
			vm.newDraftKey = fn
		}
	}
}

// New creates a view-model on an empty draft.
func New(gw gateway.Gateway, cache *storage.ChatCache, opts ...Option) *ViewModel {
	vm := &ViewModel{
		gw:              gw,
		cache:           cache,
		now:             time.Now,
		newDraftKey:     NewDraftKey,
		watchdogTimeout: DefaultWatchdogTimeout,
		subs:            make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.state = State{
		DraftKey: vm.newDraftKey(),
		Status:   model.StatusIdle,
	}.settle()
	return vm
}

// State returns the current snapshot.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// CurrentKey returns the session id, or the draft key for a new conversation.
func (vm *ViewModel) CurrentKey() string {
	return vm.State().CurrentKey()
}

// IsLoading reports whether a send or an unpainted history load is pending.
func (vm *ViewModel) IsLoading() bool {
	return vm.State().Loading
}

// Subscribe returns a channel that receives the latest State after every
// change, starting with the current one. Slow readers only see the newest
// snapshot. cancel closes the channel.
func (vm *ViewModel) Subscribe() (<-chan State, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	ch := make(chan State, 1)
	if vm.closed {
		close(ch)
		return ch, func() {}
	}
	id := vm.nextSub
	vm.nextSub++
	vm.subs[id] = ch
	ch <- vm.state

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			if c, ok := vm.subs[id]; ok {
				delete(vm.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close stops the watchdog and closes every subscription.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.closed = true
	if vm.watchdog != nil {
		vm.watchdog.Stop()
		vm.watchdog = nil
	}
	for id, ch := range vm.subs {
		delete(vm.subs, id)
		close(ch)
	}
}

// update applies fn atomically and publishes the result.
func (vm *ViewModel) update(fn func(State) State) State {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.state = fn(vm.state).settle()
	for _, ch := range vm.subs {
		select {
		case ch <- vm.state:
		default:
			// Latest wins: replace the unread snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- vm.state
		}
	}
	return vm.state
}

// stamp sets the message time from the view-model clock.
func (vm *ViewModel) stamp(m model.Message) model.Message {
	m.Timestamp = float64(vm.now().UnixNano()) / 1e9
	return m
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateNewChat switches to a fresh, empty draft. Nothing is persisted.
func (vm *ViewModel) CreateNewChat() {
	vm.selectGen.Add(1)
	vm.stopWatchdog()
	vm.update(vm.resetToDraft)
}

// resetToDraft is the CreateNewChat transition.
func (vm *ViewModel) resetToDraft(s State) State {
	s.CurrentSessionID = ""
	s.DraftKey = vm.newDraftKey()
	s.Messages = []model.Message{}
	s.Status = model.StatusIdle
	s.fetching = false
	return s
}

// SelectSession opens a stored conversation. A non-empty cached history is
// shown at once; the server copy replaces it when it arrives, unless another
// selection happened in the meantime. An empty cached history counts as no
// cache.
func (vm *ViewModel) SelectSession(ctx context.Context, id string) {
	if id == "" {
		return
	}
	gen := vm.selectGen.Add(1)
	cached := vm.cache.LoadHistory(id)
	painted := len(cached) > 0

	vm.update(func(s State) State {
		s.CurrentSessionID = id
		s.Status = model.StatusLoading
		if painted {
			s.Messages = cached
			s.fetching = false
		} else {
			s.Messages = []model.Message{}
			s.fetching = true
		}
		return s
	})

	// With cached content on screen the timeout banner would only cover a
	// correct transcript.
	if !painted {
		vm.armWatchdog(gen)
	}

	msgs, err := vm.gw.GetHistory(ctx, id)
	if err == nil {
		vm.cache.SaveHistory(id, msgs)
	} else {
		log.Printf("HISTORY_LOAD_FAILED | session=%s cached=%t error=%v", id, painted, err)
	}

	vm.update(func(s State) State {
		if vm.selectGen.Load() != gen || s.CurrentSessionID != id {
			return s
		}
		vm.stopWatchdogLocked()
		s.fetching = false
		switch {
		case err == nil:
			s.Messages = msgs
			s.Status = model.StatusSuccess
		case painted:
			s.Status = model.StatusSuccess
		default:
			s.Messages = []model.Message{}
			s.Status = model.StatusError
		}
		return s
	})
}

// SendMessage sends text in the open conversation and returns the answer, or
// the error text shown in the transcript. Blank text is ignored and returns "".
//
// The target conversation is captured when the call starts. If the user
// opens another conversation before the reply arrives, the reply is filed in
// the cached history of the original one.
func (vm *ViewModel) SendMessage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	userMsg := vm.stamp(model.NewUserMessage(text))
	var targetID, draftKey string
	var withUser []model.Message
	vm.update(func(s State) State {
		targetID = s.CurrentSessionID
		draftKey = s.DraftKey
		s.Messages = withMessage(s.Messages, userMsg)
		s.sending++
		withUser = s.Messages
		return s
	})
	if targetID != "" {
		vm.cache.SaveHistory(targetID, withUser)
	}

	isNew := targetID == ""
	var sid *string
	if !isNew {
		sid = &targetID
	}

	// onTarget reports whether s still shows the conversation this send
	// belongs to.
	onTarget := func(s State) bool {
		if isNew {
			return s.CurrentSessionID == "" && s.DraftKey == draftKey
		}
		return s.CurrentSessionID == targetID
	}

	reply, err := vm.gw.SendMessage(ctx, text, sid)
	if err != nil {
		log.Printf("CHAT_SEND_FAILED | session=%s error=%v", targetID, err)
		errMsg := vm.stamp(model.NewErrorMessage(err.Error()))

		var live []model.Message
		vm.update(func(s State) State {
			s.sending--
			if onTarget(s) {
				s.Messages = withMessage(s.Messages, errMsg)
				live = s.Messages
			}
			return s
		})
		if !isNew {
			vm.cache.SaveHistory(targetID, vm.transcriptFor(targetID, live, withUser, errMsg))
		}
		return errMsg.Content
	}

	effectiveID := targetID
	if isNew {
		effectiveID = reply.SessionID
	}
	answer := vm.stamp(model.NewAssistantMessage(reply.Answer))
	summary := model.NewSessionSummary(effectiveID, model.DeriveTitle(text), vm.now())

	// The local upsert is newer than any list request already in flight.
	vm.refreshGen.Add(1)

	var live []model.Message
	var sessions []model.SessionSummary
	vm.update(func(s State) State {
		s.sending--
		s.Sessions = s.Sessions.Upsert(summary)
		sessions = s.Sessions.Items()
		if onTarget(s) {
			s.Messages = withMessage(s.Messages, answer)
			live = s.Messages
			if isNew {
				s.CurrentSessionID = reply.SessionID
				s.DraftKey = vm.newDraftKey()
			}
		}
		return s
	})

	vm.cache.SaveSessionList(sessions)
	vm.cache.SaveHistory(effectiveID, vm.transcriptFor(effectiveID, live, withUser, answer))
	log.Printf("CHAT_SEND_OK | session=%s new=%t live=%t", effectiveID, isNew, live != nil)

	if isNew {
		if err := vm.RefreshSessions(ctx); err != nil {
			log.Printf("SESSIONS_RELOAD_FAILED | after=new_session error=%v", err)
		}
	}
	return reply.Answer
}

// transcriptFor picks the history to cache after a send. live is the
// on-screen transcript when the user stayed on the conversation; otherwise the
// reply is appended to whatever the cache holds, or to the transcript as it
// was when the send started.
func (vm *ViewModel) transcriptFor(id string, live, atSend []model.Message, reply model.Message) []model.Message {
	if live != nil {
		return live
	}
	if cached := vm.cache.LoadHistory(id); cached != nil {
		return withMessage(cached, reply)
	}
	return withMessage(atSend, reply)
}

// DeleteSession deletes a conversation on the server. Local state changes
// only when the server confirms; if it was open the screen returns to a new
// draft. It reports whether the session was deleted.
func (vm *ViewModel) DeleteSession(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	if !vm.gw.DeleteSession(ctx, id) {
		log.Printf("SESSION_DELETE_IGNORED | session=%s", id)
		return false
	}

	wasCurrent := vm.State().CurrentSessionID == id
	if wasCurrent {
		vm.selectGen.Add(1)
		vm.stopWatchdog()
	}

	var sessions []model.SessionSummary
	vm.update(func(s State) State {
		s.Sessions = s.Sessions.Remove(id)
		sessions = s.Sessions.Items()
		if s.CurrentSessionID == id {
			s = vm.resetToDraft(s)
		}
		return s
	})

	vm.cache.SaveSessionList(sessions)
	vm.cache.DeleteHistory(id)
	log.Printf("SESSION_DELETED | session=%s was_current=%t", id, wasCurrent)
	return true
}

// RefreshSessions paints the registry from cache, then replaces it with the
// server list. A failed request keeps the current registry and is returned.
func (vm *ViewModel) RefreshSessions(ctx context.Context) error {
	gen := vm.refreshGen.Add(1)

	if cached := vm.cache.LoadSessionList(false); len(cached) > 0 {
		vm.update(func(s State) State {
			if vm.refreshGen.Load() == gen {
				s.Sessions = s.Sessions.Replace(cached)
			}
			return s
		})
	}

	list, err := vm.gw.ListSessions(ctx)
	if err != nil {
		log.Printf("SESSIONS_LOAD_FAILED | error=%v", err)
		return err
	}

	var sessions []model.SessionSummary
	vm.update(func(s State) State {
		if vm.refreshGen.Load() != gen {
			return s
		}
		s.Sessions = s.Sessions.Replace(list)
		sessions = s.Sessions.Items()
		return s
	})
	if sessions != nil {
		vm.cache.SaveSessionList(sessions)
	}
	return nil
}

// ReloadSessionsFromCache repaints the registry from the cached list,
// ignoring its age. It is used when another process updated the cache.
func (vm *ViewModel) ReloadSessionsFromCache() {
	cached := vm.cache.LoadSessionList(true)
	if cached == nil {
		return
	}
	vm.update(func(s State) State {
		s.Sessions = session.List{}.Replace(cached)
		return s
	})
}

// HandleCacheChange reacts to keys changed by another process.
func (vm *ViewModel) HandleCacheChange(keys []string) {
	for _, k := range keys {
		if k == storage.KeySessions {
			vm.ReloadSessionsFromCache()
			return
		}
	}
}

// ClearCache drops every cached entry and returns to an empty draft with an
// empty registry.
func (vm *ViewModel) ClearCache() {
	vm.cache.ClearAll()
	vm.selectGen.Add(1)
	vm.refreshGen.Add(1)
	vm.stopWatchdog()
	vm.update(func(s State) State {
		s = vm.resetToDraft(s)
		s.Sessions = session.List{}
		return s
	})
}

// =============================================================================
// WATCHDOG
// =============================================================================

// armWatchdog flips a still-loading selection to timeout. It never cancels
// the request; a late response still lands normally.
func (vm *ViewModel) armWatchdog(gen uint64) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	if vm.watchdog != nil {
		vm.watchdog.Stop()
	}
	vm.watchdog = time.AfterFunc(vm.watchdogTimeout, func() {
		vm.update(func(s State) State {
			if vm.selectGen.Load() == gen && s.Status == model.StatusLoading {
				log.Printf("HISTORY_LOAD_TIMEOUT | session=%s after=%s", s.CurrentSessionID, vm.watchdogTimeout)
				s.Status = model.StatusTimeout
			}
			return s
		})
	})
}

// stopWatchdog cancels a pending watchdog.
func (vm *ViewModel) stopWatchdog() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stopWatchdogLocked()
}

func (vm *ViewModel) stopWatchdogLocked() {
	if vm.watchdog != nil {
		vm.watchdog.Stop()
		vm.watchdog = nil
	}
}
