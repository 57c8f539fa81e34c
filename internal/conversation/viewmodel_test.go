// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/patentchat/internal/gateway"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/storage"
)

// =============================================================================
// HARNESS
// =============================================================================

var t0 = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

type harness struct {
	vm    *ViewModel
	gw    *fakeGateway
	kv    *storage.MemoryKV
	cache *storage.ChatCache
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	var n atomic.Int64
	base := []Option{
		WithClock(func() time.Time { return t0 }),
		WithDraftKeyFunc(func() string { return fmt.Sprintf("draft-%d", n.Add(1)) }),
	}
	gw := newFakeGateway()
	kv := storage.NewMemoryKV()
	cache := storage.NewChatCache(kv, storage.WithClock(func() time.Time { return t0 }))
	vm := New(gw, cache, append(base, opts...)...)
	t.Cleanup(vm.Close)
	return &harness{vm: vm, gw: gw, kv: kv, cache: cache}
}

func texts(msgs []model.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+":"+m.Content)
	}
	return out
}

func conv(pairs ...string) []model.Message {
	var msgs []model.Message
	for i, p := range pairs {
		if i%2 == 0 {
			msgs = append(msgs, model.NewUserMessage(p))
		} else {
			msgs = append(msgs, model.NewAssistantMessage(p))
		}
	}
	return msgs
}

var ctx = context.Background()

// =============================================================================
// INITIAL STATE / NEW CHAT
// =============================================================================

func TestNew_StartsOnDraft(t *testing.T) {
	h := newHarness(t)
	st := h.vm.State()

	assert.True(t, st.IsDraft())
	assert.Equal(t, "draft-1", st.DraftKey)
	assert.Equal(t, "draft-1", h.vm.CurrentKey())
	assert.NotNil(t, st.Messages)
	assert.Empty(t, st.Messages)
	assert.Equal(t, model.StatusIdle, st.Status)
	assert.False(t, h.vm.IsLoading())
}

func TestNewDraftKey(t *testing.T) {
	a, b := NewDraftKey(), NewDraftKey()
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^draft-[0-9a-f-]{36}$`, a)
}

func TestCreateNewChat_ClearsWithoutPersisting(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("q", "a")
	h.vm.SelectSession(ctx, "s1")
	keysBefore, _ := h.kv.Keys("")

	h.vm.CreateNewChat()

	st := h.vm.State()
	assert.Equal(t, "", st.CurrentSessionID)
	assert.Equal(t, "draft-2", st.DraftKey)
	assert.Empty(t, st.Messages)
	keysAfter, _ := h.kv.Keys("")
	assert.Equal(t, keysBefore, keysAfter)
}

// =============================================================================
// SEND
// =============================================================================

func TestSendMessage_BlankIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "", h.vm.SendMessage(ctx, "  \n\t"))
	assert.Empty(t, h.vm.State().Messages)
	assert.Empty(t, h.gw.sendIDs)
}

func TestSendMessage_AppendsUserMessageBeforeReply(t *testing.T) {
	h := newHarness(t)
	h.gw.reply = gateway.Reply{Answer: "hi", SessionID: "srv-1"}
	hold := h.gw.holdSend()

	done := make(chan string, 1)
	go func() { done <- h.vm.SendMessage(ctx, "hello") }()
	<-h.gw.sendStarted

	st := h.vm.State()
	assert.Equal(t, []string{"user:hello"}, texts(st.Messages))
	assert.True(t, st.Loading)
	assert.Equal(t, 1, st.Sending())

	close(hold)
	assert.Equal(t, "hi", <-done)
	assert.False(t, h.vm.IsLoading())
}

func TestSendMessage_NewConversationFlow(t *testing.T) {
	h := newHarness(t)
	h.gw.reply = gateway.Reply{Answer: "hi", SessionID: "srv-1"}
	h.gw.sessions = []model.SessionSummary{model.NewSessionSummary("srv-1", "hello", t0)}

	h.vm.CreateNewChat()
	draft := h.vm.State().DraftKey

	answer := h.vm.SendMessage(ctx, "hello")
	require.Equal(t, "hi", answer)

	st := h.vm.State()
	assert.Equal(t, "srv-1", st.CurrentSessionID)
	assert.Equal(t, []string{"user:hello", "assistant:hi"}, texts(st.Messages))
	assert.NotEqual(t, draft, st.DraftKey, "a fresh draft key is pre-generated")

	require.Equal(t, 1, st.Sessions.Len())
	front := st.Sessions.At(0)
	assert.Equal(t, "srv-1", front.SessionID)
	assert.Equal(t, "hello", front.Title)
	assert.Equal(t, t0.UnixMilli(), front.UpdatedAt)

	require.Len(t, h.gw.sendIDs, 1)
	assert.Nil(t, h.gw.sendIDs[0])
	assert.Equal(t, 1, h.gw.listCallCount(), "a brand-new session triggers a registry reload")
	assert.Equal(t, []string{"user:hello", "assistant:hi"}, texts(h.cache.LoadHistory("srv-1")))
	assert.Len(t, h.cache.LoadSessionList(false), 1)
}

func TestSendMessage_NewConversationKeepsUpsertWhenReloadFails(t *testing.T) {
	h := newHarness(t)
	h.gw.reply = gateway.Reply{Answer: "hi", SessionID: "srv-1"}
	h.gw.listErr = errors.New("offline")

	h.vm.SendMessage(ctx, "이 문장은 스물다섯 글자를 훌쩍 넘어가는 아주 긴 특허 질문입니다")

	st := h.vm.State()
	require.Equal(t, 1, st.Sessions.Len())
	assert.Equal(t, "이 문장은 스물다섯 글자를 훌쩍 넘어가는 아주...", st.Sessions.At(0).Title)
}

func TestSendMessage_ExistingSession(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("first", "one")
	h.gw.sessions = []model.SessionSummary{
		{SessionID: "s2", Title: "other", UpdatedAt: 900},
		{SessionID: "s1", Title: "first", UpdatedAt: 100},
	}
	require.NoError(t, h.vm.RefreshSessions(ctx))
	h.vm.SelectSession(ctx, "s1")
	h.gw.reply = gateway.Reply{Answer: "two", SessionID: "s1"}

	assert.Equal(t, "two", h.vm.SendMessage(ctx, "second"))

	st := h.vm.State()
	assert.Equal(t, "s1", st.CurrentSessionID)
	assert.Equal(t, []string{"user:first", "assistant:one", "user:second", "assistant:two"}, texts(st.Messages))
	assert.Equal(t, "s1", st.Sessions.At(0).SessionID)
	assert.Equal(t, "second", st.Sessions.At(0).Title)
	assert.Equal(t, 2, st.Sessions.Len())

	require.NotNil(t, h.gw.sendIDs[0])
	assert.Equal(t, "s1", *h.gw.sendIDs[0])
	assert.Equal(t, 1, h.gw.listCallCount(), "no reload for an existing session")
	assert.Equal(t, texts(st.Messages), texts(h.cache.LoadHistory("s1")))
	assert.Equal(t, "s1", h.cache.LoadSessionList(false)[0].SessionID)
}

func TestSendMessage_FailureBecomesTranscriptEntry(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv()
	h.vm.SelectSession(ctx, "s1")
	h.gw.sendErr = &gateway.Error{Kind: gateway.KindServer, Status: 500, Detail: "boom"}

	got := h.vm.SendMessage(ctx, "hello")
	assert.Equal(t, "⚠ Chatbot server error (500): boom", got)

	st := h.vm.State()
	require.Len(t, st.Messages, 2)
	last := st.Messages[1]
	assert.True(t, last.IsAssistant())
	assert.True(t, last.Error)
	assert.Contains(t, last.Content, "500")
	assert.Contains(t, last.Content, "boom")
	assert.False(t, st.Loading)
	assert.Equal(t, 0, st.Sessions.Len(), "failed sends do not touch the registry")

	cached := h.cache.LoadHistory("s1")
	require.Len(t, cached, 2)
	assert.True(t, cached[1].Error)
}

func TestSendMessage_FailureOnDraftIsNotCached(t *testing.T) {
	h := newHarness(t)
	h.gw.sendErr = &gateway.Error{Kind: gateway.KindConnection, Detail: "connection refused"}

	got := h.vm.SendMessage(ctx, "hello")
	assert.Equal(t, "⚠ Chatbot server connection failed: connection refused", got)
	assert.True(t, h.vm.State().IsDraft())
	assert.Equal(t, 0, h.kv.Len())
}

func TestSendMessage_SwitchAwayFilesReplyUnderCapturedSession(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("q1", "a1")
	h.gw.histories["s2"] = conv("other", "thread")
	h.vm.SelectSession(ctx, "s1")

	h.gw.reply = gateway.Reply{Answer: "late answer", SessionID: "s1"}
	hold := h.gw.holdSend()
	done := make(chan string, 1)
	go func() { done <- h.vm.SendMessage(ctx, "q2") }()
	<-h.gw.sendStarted

	h.vm.SelectSession(ctx, "s2")
	close(hold)
	require.Equal(t, "late answer", <-done)

	st := h.vm.State()
	assert.Equal(t, "s2", st.CurrentSessionID)
	assert.Equal(t, []string{"user:other", "assistant:thread"}, texts(st.Messages))
	assert.Equal(t,
		[]string{"user:q1", "assistant:a1", "user:q2", "assistant:late answer"},
		texts(h.cache.LoadHistory("s1")))
	assert.Equal(t, "s1", st.Sessions.At(0).SessionID)
}

func TestSendMessage_NewChatAbandonedMidFlight(t *testing.T) {
	h := newHarness(t)
	h.gw.reply = gateway.Reply{Answer: "hi", SessionID: "srv-7"}
	h.gw.listErr = errors.New("offline")
	hold := h.gw.holdSend()

	done := make(chan string, 1)
	go func() { done <- h.vm.SendMessage(ctx, "hello") }()
	<-h.gw.sendStarted

	h.vm.CreateNewChat()
	close(hold)
	<-done

	st := h.vm.State()
	assert.True(t, st.IsDraft(), "the new draft is not hijacked by the late reply")
	assert.Empty(t, st.Messages)
	assert.Equal(t, "srv-7", st.Sessions.At(0).SessionID)
	assert.Equal(t, []string{"user:hello", "assistant:hi"}, texts(h.cache.LoadHistory("srv-7")))
}

// =============================================================================
// SELECT
// =============================================================================

func TestSelectSession_LoadsAndCaches(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("q", "a")

	h.vm.SelectSession(ctx, "s1")

	st := h.vm.State()
	assert.Equal(t, "s1", st.CurrentSessionID)
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Equal(t, []string{"user:q", "assistant:a"}, texts(st.Messages))
	assert.Equal(t, texts(st.Messages), texts(h.cache.LoadHistory("s1")))
}

func TestSelectSession_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("q", "a")

	h.vm.SelectSession(ctx, "s1")
	once := texts(h.vm.State().Messages)
	h.vm.SelectSession(ctx, "s1")
	assert.Equal(t, once, texts(h.vm.State().Messages))
}

func TestSelectSession_PaintsCacheFirst(t *testing.T) {
	h := newHarness(t)
	h.cache.SaveHistory("s1", conv("cached", "copy"))
	h.gw.histories["s1"] = conv("server", "copy", "newer", "turn")
	hold := h.gw.holdHistory("s1")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "s1"); close(done) }()
	<-h.gw.historyStarted

	st := h.vm.State()
	assert.Equal(t, "s1", st.CurrentSessionID)
	assert.Equal(t, model.StatusLoading, st.Status)
	assert.False(t, st.Loading, "cached content counts as loaded")
	assert.Equal(t, []string{"user:cached", "assistant:copy"}, texts(st.Messages))

	close(hold)
	<-done
	st = h.vm.State()
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Len(t, st.Messages, 4)
}

func TestSelectSession_NoCacheShowsEmptyWhileLoading(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["s1"] = conv("q", "a")
	h.gw.histories["s0"] = conv("old", "stuff")
	h.vm.SelectSession(ctx, "s0")
	require.Equal(t, "s0", <-h.gw.historyStarted)
	hold := h.gw.holdHistory("s1")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "s1"); close(done) }()
	require.Equal(t, "s1", <-h.gw.historyStarted)

	st := h.vm.State()
	assert.Empty(t, st.Messages)
	assert.True(t, st.Loading)

	close(hold)
	<-done
}

func TestSelectSession_FailureFallsBackToCache(t *testing.T) {
	h := newHarness(t)
	h.cache.SaveHistory("s1", conv("cached", "copy"))
	h.gw.historyErr = errors.New("down")

	h.vm.SelectSession(ctx, "s1")

	st := h.vm.State()
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Equal(t, []string{"user:cached", "assistant:copy"}, texts(st.Messages))
}

func TestSelectSession_FailureWithoutCacheIsError(t *testing.T) {
	h := newHarness(t)
	h.gw.historyErr = errors.New("down")

	h.vm.SelectSession(ctx, "s1")

	st := h.vm.State()
	assert.Equal(t, "s1", st.CurrentSessionID)
	assert.Equal(t, model.StatusError, st.Status)
	assert.Empty(t, st.Messages)
	assert.False(t, st.Loading)
}

func TestSelectSession_EmptyCacheFailureIsError(t *testing.T) {
	h := newHarness(t)
	h.cache.SaveHistory("s1", []model.Message{})
	h.gw.historyErr = errors.New("down")

	h.vm.SelectSession(ctx, "s1")

	st := h.vm.State()
	assert.Equal(t, model.StatusError, st.Status)
	assert.Empty(t, st.Messages)
	assert.False(t, st.Loading)
}

func TestSelectSession_LaterSelectionWins(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["A"] = conv("from", "A")
	h.gw.histories["B"] = conv("from", "B")
	holdA := h.gw.holdHistory("A")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "A"); close(done) }()
	require.Equal(t, "A", <-h.gw.historyStarted)

	h.vm.SelectSession(ctx, "B")
	close(holdA)
	<-done

	st := h.vm.State()
	assert.Equal(t, "B", st.CurrentSessionID)
	assert.Equal(t, []string{"user:from", "assistant:B"}, texts(st.Messages))
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Equal(t, []string{"user:from", "assistant:A"}, texts(h.cache.LoadHistory("A")),
		"superseded responses are still written through")
}

func TestSelectSession_NewChatSupersedesLoad(t *testing.T) {
	h := newHarness(t)
	h.gw.histories["A"] = conv("q", "a")
	hold := h.gw.holdHistory("A")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "A"); close(done) }()
	<-h.gw.historyStarted

	h.vm.CreateNewChat()
	close(hold)
	<-done

	st := h.vm.State()
	assert.True(t, st.IsDraft())
	assert.Empty(t, st.Messages)
	assert.Equal(t, model.StatusIdle, st.Status)
}

// =============================================================================
// WATCHDOG
// =============================================================================

func TestWatchdog_FlipsToTimeoutWithoutCancelling(t *testing.T) {
	h := newHarness(t, WithWatchdogTimeout(20*time.Millisecond))
	h.gw.histories["s1"] = conv("q", "a")
	hold := h.gw.holdHistory("s1")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "s1"); close(done) }()
	<-h.gw.historyStarted

	require.Eventually(t, func() bool {
		return h.vm.State().Status == model.StatusTimeout
	}, 2*time.Second, 5*time.Millisecond)

	close(hold)
	<-done
	st := h.vm.State()
	assert.Equal(t, model.StatusSuccess, st.Status, "a late response still resolves")
	assert.Len(t, st.Messages, 2)
}

func TestWatchdog_SuppressedAfterCachePaint(t *testing.T) {
	h := newHarness(t, WithWatchdogTimeout(10*time.Millisecond))
	h.cache.SaveHistory("s1", conv("cached", "copy"))
	h.gw.histories["s1"] = conv("cached", "copy")
	hold := h.gw.holdHistory("s1")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "s1"); close(done) }()
	<-h.gw.historyStarted

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, model.StatusLoading, h.vm.State().Status)

	close(hold)
	<-done
	assert.Equal(t, model.StatusSuccess, h.vm.State().Status)
}

func TestWatchdog_ArmedWhenCachedHistoryIsEmpty(t *testing.T) {
	h := newHarness(t, WithWatchdogTimeout(20*time.Millisecond))
	h.cache.SaveHistory("s1", []model.Message{})
	h.gw.histories["s1"] = conv("q", "a")
	hold := h.gw.holdHistory("s1")

	done := make(chan struct{})
	go func() { h.vm.SelectSession(ctx, "s1"); close(done) }()
	<-h.gw.historyStarted

	assert.True(t, h.vm.State().Loading)
	require.Eventually(t, func() bool {
		return h.vm.State().Status == model.StatusTimeout
	}, 2*time.Second, 5*time.Millisecond)

	close(hold)
	<-done
	st := h.vm.State()
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Len(t, st.Messages, 2)
}

// =============================================================================
// DELETE
// =============================================================================

func seedSessions(t *testing.T, h *harness) {
	t.Helper()
	h.gw.sessions = []model.SessionSummary{
		{SessionID: "X", Title: "x", UpdatedAt: 300},
		{SessionID: "Y", Title: "y", UpdatedAt: 200},
	}
	h.gw.histories["X"] = conv("about", "x")
	require.NoError(t, h.vm.RefreshSessions(ctx))
}

func TestDeleteSession_Active(t *testing.T) {
	h := newHarness(t)
	seedSessions(t, h)
	h.vm.SelectSession(ctx, "X")
	h.gw.deleteOK = true

	require.True(t, h.vm.DeleteSession(ctx, "X"))

	st := h.vm.State()
	assert.Equal(t, "", st.CurrentSessionID)
	assert.Empty(t, st.Messages)
	assert.Equal(t, 1, st.Sessions.Len())
	assert.Equal(t, "Y", st.Sessions.At(0).SessionID)
	assert.Nil(t, h.cache.LoadHistory("X"))
	assert.Len(t, h.cache.LoadSessionList(false), 1)
}

func TestDeleteSession_Inactive(t *testing.T) {
	h := newHarness(t)
	seedSessions(t, h)
	h.vm.SelectSession(ctx, "X")
	h.gw.deleteOK = true

	require.True(t, h.vm.DeleteSession(ctx, "Y"))

	st := h.vm.State()
	assert.Equal(t, "X", st.CurrentSessionID)
	assert.Len(t, st.Messages, 2)
	assert.Equal(t, 1, st.Sessions.Len())
}

func TestDeleteSession_FailureChangesNothing(t *testing.T) {
	h := newHarness(t)
	seedSessions(t, h)
	h.vm.SelectSession(ctx, "X")
	before := h.vm.State()

	assert.False(t, h.vm.DeleteSession(ctx, "X"))

	after := h.vm.State()
	assert.Equal(t, before.CurrentSessionID, after.CurrentSessionID)
	assert.Equal(t, texts(before.Messages), texts(after.Messages))
	assert.Equal(t, before.Sessions.Len(), after.Sessions.Len())
	assert.NotNil(t, h.cache.LoadHistory("X"))
}

// =============================================================================
// REGISTRY
// =============================================================================

func TestRefreshSessions_ReplacesAndCaches(t *testing.T) {
	h := newHarness(t)
	h.cache.SaveSessionList([]model.SessionSummary{{SessionID: "stale", UpdatedAt: 1}})
	h.gw.sessions = []model.SessionSummary{
		{SessionID: "b", UpdatedAt: 100},
		{SessionID: "a", UpdatedAt: 200},
	}

	require.NoError(t, h.vm.RefreshSessions(ctx))

	st := h.vm.State()
	assert.Equal(t, "a", st.Sessions.At(0).SessionID)
	assert.Equal(t, "b", st.Sessions.At(1).SessionID)
	cached := h.cache.LoadSessionList(false)
	require.Len(t, cached, 2)
	assert.Equal(t, "a", cached[0].SessionID)
}

func TestRefreshSessions_FailureKeepsCachedPaint(t *testing.T) {
	h := newHarness(t)
	h.cache.SaveSessionList([]model.SessionSummary{{SessionID: "c1", Title: "cached", UpdatedAt: 1}})
	h.gw.listErr = errors.New("offline")

	require.Error(t, h.vm.RefreshSessions(ctx))

	st := h.vm.State()
	require.Equal(t, 1, st.Sessions.Len())
	assert.Equal(t, "c1", st.Sessions.At(0).SessionID)
}

func TestHandleCacheChange_ReloadsIgnoringTTL(t *testing.T) {
	h := newHarness(t)
	writer := storage.NewChatCache(h.kv, storage.WithClock(func() time.Time { return t0.Add(-time.Hour) }))
	writer.SaveSessionList([]model.SessionSummary{{SessionID: "other-process", UpdatedAt: 5}})

	h.vm.HandleCacheChange([]string{storage.HistoryKey("zzz")})
	assert.Equal(t, 0, h.vm.State().Sessions.Len())

	h.vm.HandleCacheChange([]string{storage.KeySessionsTimestamp, storage.KeySessions})
	st := h.vm.State()
	require.Equal(t, 1, st.Sessions.Len())
	assert.Equal(t, "other-process", st.Sessions.At(0).SessionID)
}

func TestClearCache(t *testing.T) {
	h := newHarness(t)
	seedSessions(t, h)
	h.vm.SelectSession(ctx, "X")

	h.vm.ClearCache()

	st := h.vm.State()
	assert.True(t, st.IsDraft())
	assert.Empty(t, st.Messages)
	assert.Equal(t, 0, st.Sessions.Len())
	assert.Equal(t, 0, h.kv.Len())
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

func TestSubscribe_DeliversLatestState(t *testing.T) {
	h := newHarness(t)
	states, cancel := h.vm.Subscribe()

	first := <-states
	assert.Equal(t, "draft-1", first.DraftKey)

	h.vm.CreateNewChat()
	h.vm.CreateNewChat()
	h.vm.CreateNewChat()

	latest := <-states
	assert.Equal(t, "draft-4", latest.DraftKey)

	cancel()
	cancel()
	_, ok := <-states
	assert.False(t, ok)
}

func TestClose_ClosesSubscriptions(t *testing.T) {
	h := newHarness(t)
	states, cancel := h.vm.Subscribe()
	defer cancel()
	<-states

	h.vm.Close()
	_, ok := <-states
	assert.False(t, ok)

	late, _ := h.vm.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
