// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/jeranaias/patentchat/internal/model"
)

// Configuration constants for the chatbot API.
const (
	// DefaultBaseURL is where the development backend listens.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultBasePath prefixes every endpoint.
	DefaultBasePath = "/api/chatbot"

	// DefaultSendTimeout bounds a single question. It must stay above the
	// server's own generation budget or long answers are cut off client-side.
	DefaultSendTimeout = 300 * time.Second

	// DefaultReadTimeout bounds list, history and delete calls.
	DefaultReadTimeout = 30 * time.Second

	// DefaultRateLimit and DefaultRateBurst throttle outgoing requests.
	DefaultRateLimit = 5.0
	DefaultRateBurst = 10

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

// UserAgent is sent with every request. The CLI overrides it with the build
// version.
var UserAgent = "patentchat/dev"

// sharedTransport pools connections for every HTTPGateway.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// HTTPGateway talks to the chatbot backend over HTTP/JSON.
type HTTPGateway struct {
	baseURL  string
	basePath string
	token    string

	sendClient *http.Client
	readClient *http.Client
	limiter    *rate.Limiter
}

// New creates a gateway for the server at baseURL (scheme and host, e.g.
// "http://127.0.0.1:8000"). An empty baseURL uses DefaultBaseURL.
func New(baseURL string) *HTTPGateway {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPGateway{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		basePath:   DefaultBasePath,
		sendClient: &http.Client{Transport: sharedTransport, Timeout: DefaultSendTimeout},
		readClient: &http.Client{Transport: sharedTransport, Timeout: DefaultReadTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
	}
}

// WithBasePath sets the path prefix of every endpoint.
func (g *HTTPGateway) WithBasePath(path string) *HTTPGateway {
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		path = ""
	}
	g.basePath = path
	return g
}

// WithToken sets the bearer token sent in the Authorization header.
func (g *HTTPGateway) WithToken(token string) *HTTPGateway {
	g.token = strings.TrimSpace(token)
	return g
}

// WithSendTimeout sets the timeout of SendMessage.
func (g *HTTPGateway) WithSendTimeout(timeout time.Duration) *HTTPGateway {
	if timeout > 0 {
		g.sendClient.Timeout = timeout
	}
	return g
}

// WithReadTimeout sets the timeout of list, history and delete calls.
func (g *HTTPGateway) WithReadTimeout(timeout time.Duration) *HTTPGateway {
	if timeout > 0 {
		g.readClient.Timeout = timeout
	}
	return g
}

// WithRateLimit sets the request rate. A non-positive rps disables limiting.
func (g *HTTPGateway) WithRateLimit(rps float64, burst int) *HTTPGateway {
	if rps <= 0 {
		g.limiter = rate.NewLimiter(rate.Inf, 0)
		return g
	}
	if burst < 1 {
		burst = 1
	}
	g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return g
}

// SendTimeout returns the configured SendMessage timeout.
func (g *HTTPGateway) SendTimeout() time.Duration {
	return g.sendClient.Timeout
}

// BaseURL returns the server address.
func (g *HTTPGateway) BaseURL() string {
	return g.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SendMessage implements Gateway. Every error is a *Error.
func (g *HTTPGateway) SendMessage(ctx context.Context, text string, sessionID *string) (Reply, error) {
	body, err := json.Marshal(askRequest{
		Query:     norm.NFC.String(text),
		SessionID: sessionID,
	})
	if err != nil {
		return Reply{}, unknownError(err)
	}

	data, err := g.do(ctx, g.sendClient, http.MethodPost, g.endpoint("ask"), body)
	if err != nil {
		return Reply{}, err
	}

	var resp struct {
		Answer    *string `json:"answer"`
		SessionID string  `json:"session_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return Reply{}, unknownError(fmt.Errorf("decode ask response: %w", err))
	}
	if resp.Answer == nil {
		return Reply{}, unknownError(errors.New("ask response has no answer"))
	}

	reply := Reply{Answer: *resp.Answer, SessionID: resp.SessionID}
	if reply.SessionID == "" && sessionID != nil {
		reply.SessionID = *sessionID
	}
	if reply.SessionID == "" {
		return Reply{}, unknownError(errors.New("ask response has no session_id"))
	}
	return reply, nil
}

// ListSessions implements Gateway. It accepts a bare array or {"sessions": [...]}.
func (g *HTTPGateway) ListSessions(ctx context.Context) ([]model.SessionSummary, error) {
	data, err := g.do(ctx, g.readClient, http.MethodGet, g.endpoint("sessions"), nil)
	if err != nil {
		return []model.SessionSummary{}, err
	}

	sessions := []model.SessionSummary{}
	if err := decodeEnvelope(data, "sessions", &sessions); err != nil {
		return []model.SessionSummary{}, unknownError(fmt.Errorf("decode sessions: %w", err))
	}
	return sessions, nil
}

// GetHistory implements Gateway. It accepts a bare array or {"messages": [...]}.
func (g *HTTPGateway) GetHistory(ctx context.Context, sessionID string) ([]model.Message, error) {
	data, err := g.do(ctx, g.readClient, http.MethodGet, g.endpoint("sessions", sessionID), nil)
	if err != nil {
		return []model.Message{}, err
	}

	messages := []model.Message{}
	if err := decodeEnvelope(data, "messages", &messages); err != nil {
		return []model.Message{}, unknownError(fmt.Errorf("decode history: %w", err))
	}
	return messages, nil
}

// DeleteSession implements Gateway. A body of {"deleted": bool} is honored;
// any other 2xx counts as deleted.
func (g *HTTPGateway) DeleteSession(ctx context.Context, sessionID string) bool {
	data, err := g.do(ctx, g.readClient, http.MethodDelete, g.endpoint("sessions", sessionID), nil)
	if err != nil {
		log.Printf("SESSION_DELETE_FAILED | session=%s error=%v", sessionID, err)
		return false
	}

	var resp struct {
		Deleted *bool `json:"deleted"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && resp.Deleted != nil {
		return *resp.Deleted
	}
	return true
}

// =============================================================================
// TRANSPORT
// =============================================================================

// endpoint joins path segments under the base path, escaping each one.
func (g *HTTPGateway) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(g.baseURL)
	b.WriteString(g.basePath)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// do performs one request and returns the body of a 2xx response. Failures
// are always *Error.
func (g *HTTPGateway) do(ctx context.Context, client *http.Client, method, endpoint string, body []byte) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, connectionError(err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, unknownError(err)
	}
	g.setHeaders(req, body != nil)

	g.logRequest(req)
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("API Error: %s %s: %v", req.Method, req.URL.Path, err)
		return nil, connectionError(err)
	}
	defer resp.Body.Close()
	g.logResponse(resp, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, connectionError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, serverError(resp.StatusCode, data)
	}
	return data, nil
}

// setHeaders sets the headers every request carries.
func (g *HTTPGateway) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// logRequest logs a request without headers or body, which may carry the
// token or the user's question.
func (g *HTTPGateway) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

// logResponse logs the status and duration of a response.
func (g *HTTPGateway) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Request.URL.Path, duration)
}

// decodeEnvelope decodes either a bare JSON array or an object holding the
// array under field. An object without the field decodes as empty.
func decodeEnvelope(data []byte, field string, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	raw, ok := obj[field]
	if !ok || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Compile-time check.
var _ Gateway = (*HTTPGateway)(nil)
