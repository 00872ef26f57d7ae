// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/response"
)

func newTestServer(t *testing.T, opts Options) (*Server, *api.Client) {
	t.Helper()
	if opts.TokenDelay == 0 {
		opts.TokenDelay = -1
	}
	s := New(opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	client := api.New(api.Options{
		BaseURL:       ts.URL,
		MaxRetries:    -1,
		RatePerSecond: -1,
		Token:         opts.AuthToken,
		HTTPClient:    ts.Client(),
	})
	return s, client
}

// =============================================================================
// COMMAND ENDPOINT
// =============================================================================

func TestCommand_ReturnsTaggedPayload(t *testing.T) {
	_, client := newTestServer(t, Options{})

	resp, err := client.FetchCommand(context.Background(), "projects")
	require.NoError(t, err)

	cmd, ok := resp.(*response.CommandResponse)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "projects", cmd.Command)
	assert.True(t, cmd.HasData())

	var items []map[string]any
	require.NoError(t, json.Unmarshal(cmd.Data, &items))
	assert.Len(t, items, 3)
	assert.Equal(t, "Portana", items[0]["title"])
}

func TestCommand_CaseInsensitive(t *testing.T) {
	_, client := newTestServer(t, Options{})

	resp, err := client.FetchCommand(context.Background(), "STACK")
	require.NoError(t, err)
	assert.Equal(t, "stack", resp.(*response.CommandResponse).Command)
}

func TestCommand_RegisteredWithoutFixture(t *testing.T) {
	p := &Portfolio{Commands: map[string]CommandFixture{}}
	_, client := newTestServer(t, Options{Portfolio: p})

	resp, err := client.FetchCommand(context.Background(), "about")
	require.NoError(t, err)
	cmd := resp.(*response.CommandResponse)
	assert.Equal(t, "Nothing here yet for /about.", cmd.Content)
	assert.False(t, cmd.HasData())
}

func TestCommand_Unknown(t *testing.T) {
	_, client := newTestServer(t, Options{})

	_, err := client.FetchCommand(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCommand_FailInjection(t *testing.T) {
	s, client := newTestServer(t, Options{FailCommands: []string{"/projects"}})

	_, err := client.FetchCommand(context.Background(), "projects")
	var se *api.StatusError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int64(1), s.Stats().Failures.Load())

	_, err = client.FetchCommand(context.Background(), "stack")
	assert.NoError(t, err)
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

func TestMessage_HybridWithSuggestion(t *testing.T) {
	s, client := newTestServer(t, Options{})

	raw, err := client.SendMessage(context.Background(), "sess-1", "Tell me about your projects")
	require.NoError(t, err)

	resp := response.Parse(raw)
	hybrid, ok := resp.(*response.HybridResponse)
	require.True(t, ok, "got %T from %q", resp, raw)
	cmd, show := hybrid.Suggestion()
	assert.True(t, show)
	assert.Equal(t, "projects", cmd)
	assert.NotEmpty(t, hybrid.Citations)
	assert.Equal(t, 1, s.Stats().Sessions())
}

func TestMessage_NoMatchIsText(t *testing.T) {
	_, client := newTestServer(t, Options{})

	raw, err := client.SendMessage(context.Background(), "sess-1", "quantum basket weaving")
	require.NoError(t, err)

	text, ok := response.Parse(raw).(*response.TextResponse)
	require.True(t, ok)
	assert.Contains(t, text.Content, "/help")
	assert.Empty(t, text.Citations)
}

func TestMessage_Validation(t *testing.T) {
	s := New(Options{})

	for _, body := range []string{`{`, `{"sessionId":"x","message":"   "}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(body))
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := httptest.NewRecorder()
	big := `{"message":"` + strings.Repeat("a", MaxRequestBodySize) + `"}`
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/message", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAsk_StreamsSourcesTokensDone(t *testing.T) {
	_, client := newTestServer(t, Options{})

	stream, err := client.StreamChat(context.Background(), api.ChatQuery{Query: "kafka pipeline", SessionID: "sess-9"})
	require.NoError(t, err)
	defer stream.Close()

	var tokens []string
	asm, err := api.Collect(stream, func(tok string) { tokens = append(tokens, tok) })
	require.NoError(t, err)

	assert.True(t, asm.Done())
	assert.Greater(t, len(tokens), 1)
	assert.Equal(t, strings.Join(tokens, ""), asm.Content())
	require.NotEmpty(t, asm.Sources())
	assert.Equal(t, "Tidepool", asm.Sources()[0].Title)
	assert.Equal(t, "sess-9", asm.Summary().SessionID)
	assert.Equal(t, len(tokens), asm.Summary().TotalTokens)
}

func TestAsk_RespectsTopK(t *testing.T) {
	_, client := newTestServer(t, Options{})

	q := api.ChatQuery{Query: "go streaming pipeline kafka stack", Options: &api.ChatOptions{TopK: 1}}
	stream, err := client.StreamChat(context.Background(), q)
	require.NoError(t, err)
	defer stream.Close()

	asm, err := api.Collect(stream, nil)
	require.NoError(t, err)
	assert.Len(t, asm.Sources(), 1)
}

func TestAsk_ClientCancelStopsStream(t *testing.T) {
	_, client := newTestServer(t, Options{TokenDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.StreamChat(ctx, api.ChatQuery{Query: "portana"})
	require.NoError(t, err)
	defer stream.Close()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, api.EventSources, ev.Type)

	cancel()
	for {
		if _, err = stream.Recv(); err != nil {
			break
		}
	}
	assert.Error(t, err)
}

// =============================================================================
// HEALTH AND STATS
// =============================================================================

func TestHealth(t *testing.T) {
	_, client := newTestServer(t, Options{})

	hs, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", hs.Status)
	assert.Equal(t, Version, hs.Details["version"])
}

func TestStats_CountsRequests(t *testing.T) {
	s, client := newTestServer(t, Options{})
	ctx := context.Background()

	_, _ = client.FetchCommand(ctx, "about")
	_, _ = client.SendMessage(ctx, "a", "projects")
	_, _ = client.SendMessage(ctx, "b", "projects")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.Commands)
	assert.Equal(t, int64(2), st.Messages)
	assert.Equal(t, 2, st.Sessions)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestAuth(t *testing.T) {
	s := New(Options{AuthToken: "secret"})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/commands/about", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/commands/about", nil)
	req.Header.Set("Authorization", "Bearer secret")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ClientSendsToken(t *testing.T) {
	_, client := newTestServer(t, Options{AuthToken: "secret"})

	_, err := client.FetchCommand(context.Background(), "about")
	assert.NoError(t, err)
}

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abd", "abc"))
	assert.False(t, ValidateBearerToken("", "abc"))
	assert.False(t, ValidateBearerToken("abc", ""))
}

func TestRateLimit(t *testing.T) {
	s := New(Options{RatePerSecond: 1})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes[i] = rec.Code
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestCORS(t *testing.T) {
	s := New(Options{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/ask", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	cfg := &CORSConfig{AllowedOrigins: []string{"*.example.com"}}
	assert.Equal(t, "https://app.example.com", cfg.allowOrigin("https://app.example.com"))
	assert.Empty(t, cfg.allowOrigin("https://example.org"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(RecoveryMiddleware(logging.Discard()))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, "203.0.113.7", GetClientIP(req), "untrusted peer cannot spoof")

	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	assert.Equal(t, "198.51.100.4", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "127.0.0.1", GetClientIP(req))
}

// =============================================================================
// PORTFOLIO
// =============================================================================

func TestPortfolio_Search(t *testing.T) {
	p := DefaultPortfolio()

	matches := p.Search("Where did you work?", 0)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Northwind Labs", matches[0].Title)

	assert.Empty(t, p.Search("the and of", 0))
	assert.Empty(t, p.Search("", 0))
}

func TestLoadPortfolio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner: Sam
commands:
  /Projects:
    content: Just one.
    data:
      - title: Widget
documents:
  - id: d1
    title: Widget
    body: Widget is a thing I made.
    command: projects
`), 0o600))

	p, err := LoadPortfolio(path)
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.Owner)

	fx, ok := p.Command("projects")
	require.True(t, ok)
	assert.Equal(t, "Just one.", fx.Content)

	_, client := newTestServer(t, Options{Portfolio: p})
	resp, err := client.FetchCommand(context.Background(), "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"Widget"}]`, string(resp.(*response.CommandResponse).Data))
}

func TestLoadPortfolio_Errors(t *testing.T) {
	_, err := LoadPortfolio(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"owner":"x"}`), 0o600))
	_, err = LoadPortfolio(empty)
	assert.Error(t, err)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Options{TokenDelay: -1})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := api.New(api.Options{BaseURL: "http://" + ln.Addr().String(), MaxRetries: -1, RatePerSecond: -1})
	require.Eventually(t, func() bool {
		_, err := client.Health(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
