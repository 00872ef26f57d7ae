// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/response"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL + "/", HTTPClient: srv.Client(), RatePerSecond: -1})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c, srv
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.timeout)
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)
	assert.NotNil(t, c.limiter)

	c = New(Options{BaseURL: "https://api.example.com///", MaxRetries: -1, RatePerSecond: -1})
	assert.Equal(t, "https://api.example.com", c.BaseURL())
	assert.Equal(t, 0, c.maxRetries)
	assert.Nil(t, c.limiter)
}

func TestFetchCommand_Tagged(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/commands/projects", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"type":"command","command":"projects","content":"My projects","data":[{"title":"portana"}]}`)
	}))

	resp, err := c.FetchCommand(context.Background(), "/projects")
	require.NoError(t, err)
	cmd, ok := resp.(*response.CommandResponse)
	require.True(t, ok, "got %T", resp)
	assert.Equal(t, "projects", cmd.Command)
	assert.Equal(t, "My projects", cmd.Content)
	assert.JSONEq(t, `[{"title":"portana"}]`, string(cmd.Data))
}

func TestFetchCommand_UntaggedIsCommand(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"command":"contact","content":"Mail me"}`)
	}))

	resp, err := c.FetchCommand(context.Background(), "contact")
	require.NoError(t, err)
	cmd := resp.(*response.CommandResponse)
	assert.Equal(t, "Mail me", cmd.Content)
	assert.JSONEq(t, `{}`, string(cmd.Data))
}

func TestFetchCommand_TextReply(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"text","content":"help text"}`)
	}))

	resp, err := c.FetchCommand(context.Background(), "help")
	require.NoError(t, err)
	assert.Equal(t, response.KindText, resp.Kind())
}

func TestFetchCommand_NotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such command", http.StatusNotFound)
	}))

	_, err := c.FetchCommand(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Contains(t, se.Error(), "no such command")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCommand_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"type":"command","command":"stack","content":"ok"}`)
	}))

	resp, err := c.FetchCommand(context.Background(), "stack")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Body())
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchCommand_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FetchCommand(context.Background(), "stack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(DefaultMaxRetries+1), calls.Load())
}

func TestFetchCommand_Malformed(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, `<html>oops</html>`)
	}))

	_, err := c.FetchCommand(context.Background(), "stack")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCommand_EscapesName(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/commands/a%2Fb", r.URL.EscapedPath())
		io.WriteString(w, `{"type":"command"}`)
	}))
	_, err := c.FetchCommand(context.Background(), "a/b")
	require.NoError(t, err)
}

func TestSendMessage(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/message", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "visitor-1", body["sessionId"])
		assert.Equal(t, "hello", body["message"])

		io.WriteString(w, `{"response":"{\"type\":\"text\",\"content\":\"hi\"}"}`)
	}))

	raw, err := c.SendMessage(context.Background(), "visitor-1", "hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","content":"hi"}`, raw)
}

func TestSendMessage_ObjectAndMissingResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["message"] == "object" {
			io.WriteString(w, `{"response":{"type":"hybrid","content":"x"}}`)
			return
		}
		io.WriteString(w, `{}`)
	}))

	raw, err := c.SendMessage(context.Background(), "s", "object")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hybrid","content":"x"}`, raw)

	raw, err = c.SendMessage(context.Background(), "s", "empty")
	require.NoError(t, err)
	assert.Equal(t, "", raw)
}

func TestSendMessage_ErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.SendMessage(context.Background(), "s", "m")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_BearerAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "portana-test/1", r.Header.Get("User-Agent"))
		io.WriteString(w, `{"status":"ok","uptime":12}`)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Token: "tok", UserAgent: "portana-test/1", HTTPClient: srv.Client()})
	hs, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", hs.Status)
	assert.EqualValues(t, 12, hs.Details["uptime"])
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, MaxRetries: -1, RatePerSecond: -1})
	_, err := c.FetchCommand(context.Background(), "stack")
	assert.Error(t, err)
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := c.FetchCommand(ctx, "stack")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchCommand_HangingBackendBoundedByTimeout(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	c.timeout = 200 * time.Millisecond
	c.maxRetries = 3

	start := time.Now()
	_, err := c.FetchCommand(context.Background(), "stack")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, elapsed, 2*c.timeout, "retries must share one deadline")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCommand_CallerCancelNotReportedAsTimeout(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.FetchCommand(ctx, "stack")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "timed out")
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, calculateBackoff(0))
	assert.Equal(t, time.Second, calculateBackoff(1))
	assert.Equal(t, 2*time.Second, calculateBackoff(2))
	assert.Equal(t, retryMaxDelay, calculateBackoff(10))
	assert.Equal(t, retryMaxDelay, calculateBackoff(80))
}

func TestStatusError_Is(t *testing.T) {
	assert.ErrorIs(t, &StatusError{StatusCode: 429}, ErrRateLimited)
	assert.NotErrorIs(t, &StatusError{StatusCode: 500}, ErrRateLimited)
	assert.True(t, (&StatusError{StatusCode: 503}).Temporary())
	assert.False(t, (&StatusError{StatusCode: 400}).Temporary())
}
