// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jeranaias/patentchat/internal/model"
)

// DefaultSessionLimit caps the session listing like the production backend.
const DefaultSessionLimit = 100

// Responder produces the answer to a question. history holds the earlier
// turns of the session.
type Responder func(ctx context.Context, query string, history []model.Message) (string, error)

// EchoResponder answers with the question itself.
func EchoResponder(_ context.Context, query string, history []model.Message) (string, error) {
	return fmt.Sprintf("Echo (%d): %s", len(history)/2+1, query), nil
}

// Options configures the development backend.
type Options struct {
	// BasePath prefixes every route. Default: /api/chatbot
	BasePath string

	// Token, when set, is required as a bearer token.
	Token string

	// Responder answers questions. Default: EchoResponder.
	Responder Responder

	// Latency delays every ask.
	Latency time.Duration

	// FailEvery makes every n-th ask fail with HTTP 500. Zero disables it.
	FailEvery int

	// Now replaces the wall clock.
	Now func() time.Time
}

// record is one stored conversation.
type record struct {
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	messages  []model.Message
}

// Server is an in-memory chatbot backend implementing the same HTTP contract
// as the production service.
type Server struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*record

	asks atomic.Int64
}

// New creates an empty server.
func New(opts Options) *Server {
	if opts.BasePath == "" {
		opts.BasePath = "/api/chatbot"
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")
	if opts.Responder == nil {
		opts.Responder = EchoResponder
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		opts:     opts,
		sessions: make(map[string]*record),
	}
}

// Handler builds the gin engine serving the API.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	return router
}

// SessionCount returns the number of stored sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// =============================================================================
// STORE
// =============================================================================

// appendExchange stores one question and answer, creating the session when
// needed. The title is taken from the first question only.
func (s *Server) appendExchange(sessionID, query, answer string) {
	now := s.opts.Now()
	ts := float64(now.UnixNano()) / 1e9

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &record{
			id:        sessionID,
			title:     model.DeriveTitle(query),
			createdAt: now,
		}
		s.sessions[sessionID] = rec
	}
	rec.messages = append(rec.messages,
		model.Message{Role: model.RoleUser, Content: query, Timestamp: ts},
		model.Message{Role: model.RoleAssistant, Content: answer, Timestamp: ts},
	)
	rec.updatedAt = now
}

func (s *Server) history(sessionID string) ([]model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return model.CloneMessages(rec.messages), true
}

func (s *Server) list() []model.SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionSummary, 0, len(s.sessions))
	for _, rec := range s.sessions {
		out = append(out, model.NewSessionSummary(rec.id, rec.title, rec.updatedAt))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].SessionID < out[j].SessionID
	})
	if len(out) > DefaultSessionLimit {
		out = out[:DefaultSessionLimit]
	}
	return out
}

func (s *Server) remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}
	delete(s.sessions, sessionID)
	return true
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// StartOpts holds configuration for Start.
type StartOpts struct {
	Addr    string
	Options Options
	Out     io.Writer
}

// Start serves the development backend on opts.Addr. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8000"
	}
	s := New(opts.Options)

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dev server running at http://%s%s\n", opts.Addr, s.opts.BasePath)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("devserver: %w", err)
	}
	return nil
}

// newSessionID returns an id in the backend's format.
func newSessionID() string {
	return uuid.NewString()
}
