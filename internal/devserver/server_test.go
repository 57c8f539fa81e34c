// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/patentchat/internal/conversation"
	"github.com/jeranaias/patentchat/internal/gateway"
	"github.com/jeranaias/patentchat/internal/model"
	"github.com/jeranaias/patentchat/internal/storage"
)

func startTestServer(t *testing.T, opts Options) (*Server, *gateway.HTTPGateway) {
	t.Helper()
	s := New(opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	gw := gateway.New(srv.URL).WithRateLimit(0, 0)
	if opts.BasePath != "" {
		gw.WithBasePath(opts.BasePath)
	}
	return s, gw
}

func TestAsk_CreatesSessionAndStoresTurns(t *testing.T) {
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s, gw := startTestServer(t, Options{Now: func() time.Time { return clock }})
	ctx := context.Background()

	reply, err := gw.SendMessage(ctx, "전고체 배터리 특허", nil)
	require.NoError(t, err)
	require.NotEmpty(t, reply.SessionID)
	assert.Equal(t, "Echo (1): 전고체 배터리 특허", reply.Answer)
	assert.Equal(t, 1, s.SessionCount())

	id := reply.SessionID
	reply, err = gw.SendMessage(ctx, "follow up", &id)
	require.NoError(t, err)
	assert.Equal(t, id, reply.SessionID)
	assert.Equal(t, "Echo (2): follow up", reply.Answer)

	msgs, err := gw.GetHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.InDelta(t, float64(clock.Unix()), msgs[0].Timestamp, 1e-3)

	sessions, err := gw.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "전고체 배터리 특허", sessions[0].Title, "title comes from the first question")
	assert.Equal(t, clock.UnixMilli(), sessions[0].UpdatedAt)
}

func TestListSessions_NewestFirst(t *testing.T) {
	var now atomic.Int64
	now.Store(1700000000)
	s, gw := startTestServer(t, Options{Now: func() time.Time { return time.Unix(now.Load(), 0) }})
	ctx := context.Background()

	first, err := gw.SendMessage(ctx, "first", nil)
	require.NoError(t, err)
	now.Add(60)
	second, err := gw.SendMessage(ctx, "second", nil)
	require.NoError(t, err)
	require.Equal(t, 2, s.SessionCount())

	sessions, err := gw.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID)
	assert.Equal(t, first.SessionID, sessions[1].SessionID)
}

func TestHistory_UnknownSessionIs404(t *testing.T) {
	_, gw := startTestServer(t, Options{})

	_, err := gw.GetHistory(context.Background(), "nope")
	var gerr *gateway.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 404, gerr.Status)
	assert.Equal(t, "대화 내역을 찾을 수 없습니다.", gerr.Detail)
}

func TestDelete(t *testing.T) {
	s, gw := startTestServer(t, Options{})
	ctx := context.Background()

	reply, err := gw.SendMessage(ctx, "q", nil)
	require.NoError(t, err)

	assert.True(t, gw.DeleteSession(ctx, reply.SessionID))
	assert.Equal(t, 0, s.SessionCount())
	assert.False(t, gw.DeleteSession(ctx, reply.SessionID), "second delete reports deleted=false")
}

func TestAsk_MissingQueryIs422(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/ask", strings.NewReader(`{"session_id":null}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "detail")
}

func TestAnswerAlias(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/answer", strings.NewReader(`{"query":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Echo (1): hi")
}

func TestTokenRequired(t *testing.T) {
	_, gw := startTestServer(t, Options{Token: "s3cret"})
	ctx := context.Background()

	_, err := gw.ListSessions(ctx)
	var gerr *gateway.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 401, gerr.Status)

	gw.WithToken("s3cret")
	_, err = gw.ListSessions(ctx)
	assert.NoError(t, err)
}

func TestFailEvery(t *testing.T) {
	_, gw := startTestServer(t, Options{FailEvery: 2})
	ctx := context.Background()

	_, err := gw.SendMessage(ctx, "one", nil)
	require.NoError(t, err)
	_, err = gw.SendMessage(ctx, "two", nil)
	require.Error(t, err)
	assert.Equal(t, "Chatbot server error (500): injected failure", err.Error())
}

func TestCustomBasePathAndResponder(t *testing.T) {
	_, gw := startTestServer(t, Options{
		BasePath: "/v2/bot/",
		Responder: func(_ context.Context, q string, _ []model.Message) (string, error) {
			return "", errors.New("engine offline")
		},
	})

	_, err := gw.SendMessage(context.Background(), "q", nil)
	require.Error(t, err)
	assert.Equal(t, "Chatbot server error (500): engine offline", err.Error())
}

// TestViewModelAgainstDevServer drives the full client stack over HTTP.
func TestViewModelAgainstDevServer(t *testing.T) {
	_, gw := startTestServer(t, Options{})
	cache := storage.NewChatCache(storage.NewMemoryKV())
	vm := conversation.New(gw, cache)
	defer vm.Close()
	ctx := context.Background()

	vm.CreateNewChat()
	answer := vm.SendMessage(ctx, "10-2020-1234567 분석해줘")
	assert.Equal(t, "Echo (1): 10-2020-1234567 분석해줘", answer)

	st := vm.State()
	require.False(t, st.IsDraft())
	id := st.CurrentSessionID
	require.Equal(t, 1, st.Sessions.Len())
	assert.Equal(t, id, st.Sessions.At(0).SessionID)

	vm.CreateNewChat()
	vm.SelectSession(ctx, id)
	st = vm.State()
	assert.Equal(t, model.StatusSuccess, st.Status)
	assert.Len(t, st.Messages, 2)

	require.True(t, vm.DeleteSession(ctx, id))
	st = vm.State()
	assert.True(t, st.IsDraft())
	assert.Equal(t, 0, st.Sessions.Len())
	assert.Nil(t, cache.LoadHistory(id))
}
