// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// askRequest mirrors the production request body.
type askRequest struct {
	Query     *string `json:"query"`
	SessionID *string `json:"session_id"`
}

// registerRoutes sets up the chatbot API on the router.
func (s *Server) registerRoutes(router *gin.Engine) {
	api := router.Group(s.opts.BasePath)
	if s.opts.Token != "" {
		api.Use(s.requireToken())
	}

	api.POST("/ask", s.handleAsk())
	// Older frontends post to /answer.
	api.POST("/answer", s.handleAsk())
	api.GET("/sessions", s.handleListSessions())
	api.GET("/sessions/:id", s.handleHistory())
	api.DELETE("/sessions/:id", s.handleDelete())
}

func (s *Server) requireToken() gin.HandlerFunc {
	want := "Bearer " + s.opts.Token
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != want {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleAsk() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Query == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
				"loc":  []string{"body", "query"},
				"msg":  "field required",
				"type": "value_error.missing",
			}}})
			return
		}

		n := s.asks.Add(1)
		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-c.Request.Context().Done():
				return
			}
		}
		if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "injected failure"})
			return
		}

		sessionID := ""
		if req.SessionID != nil {
			sessionID = strings.TrimSpace(*req.SessionID)
		}
		if sessionID == "" {
			sessionID = newSessionID()
		}

		prior, _ := s.history(sessionID)
		answer, err := s.opts.Responder(c.Request.Context(), *req.Query, prior)
		if err != nil {
			log.Printf("DEVSERVER_ANSWER_FAILED | session=%s error=%v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}

		s.appendExchange(sessionID, *req.Query, answer)
		c.JSON(http.StatusOK, gin.H{"answer": answer, "session_id": sessionID})
	}
}

func (s *Server) handleListSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.list())
	}
}

func (s *Server) handleHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, ok := s.history(c.Param("id"))
		if !ok || len(msgs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"detail": "대화 내역을 찾을 수 없습니다."})
			return
		}
		c.JSON(http.StatusOK, msgs)
	}
}

func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		c.JSON(http.StatusOK, gin.H{"deleted": s.remove(id), "session_id": id})
	}
}
