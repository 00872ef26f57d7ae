// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/response"
)

// Configuration defaults.
const (
	DefaultBaseURL = "http://localhost:3000"

	// DefaultTimeout bounds non-streaming requests. Streams use it only as
	// the wait for response headers.
	DefaultTimeout = 30 * time.Second

	DefaultMaxRetries = 2

	// DefaultRatePerSecond is the client-side request budget.
	DefaultRatePerSecond = 5.0

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second

	// MaxResponseSize caps non-streaming bodies.
	MaxResponseSize = 10 * 1024 * 1024

	defaultUserAgent = "portana-tui"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is matched by a 404 StatusError.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is matched by a 429 StatusError.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformed means the body was not the JSON the endpoint promises.
	ErrMalformed = errors.New("malformed response")

	// ErrStreamClosed is returned by Recv after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// StatusError is a non-2xx reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, body)
}

// Is lets errors.Is match the sentinel for well-known statuses.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// Temporary reports whether retrying could help.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// =============================================================================
// CLIENT
// =============================================================================

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// MaxRetries applies to GETs. Negative disables retries.
	MaxRetries int

	// RatePerSecond limits outgoing requests. Negative disables limiting.
	RatePerSecond float64
	UserAgent     string

	// Token, when set, is sent as a bearer credential.
	Token string

	// HTTPClient overrides the pooled client (tests use httptest's).
	HTTPClient *http.Client

	Logger *log.Logger
}

// Client talks to one backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	userAgent  string
	token      string

	http    *http.Client
	stream  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger

	// sleep is swapped in tests to skip backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		userAgent:  opts.UserAgent,
		token:      opts.Token,
		logger:     logging.Component(opts.Logger, "api"),
		sleep:      sleepCtx,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if opts.MaxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	rps := opts.RatePerSecond
	if rps == 0 {
		rps = DefaultRatePerSecond
	}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(max(1, rps)))
	}

	if opts.HTTPClient != nil {
		c.http = opts.HTTPClient
		c.stream = opts.HTTPClient
	} else {
		c.http = &http.Client{Transport: newTransport(0), Timeout: c.timeout}
		c.stream = &http.Client{Transport: newTransport(c.timeout)}
	}
	return c
}

func newTransport(headerTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: headerTimeout,
	}
}

// BaseURL returns the backend root this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// ENDPOINTS
// =============================================================================

// FetchCommand runs GET /api/commands/{name}. The body is parsed as a
// tagged reply; an untagged object is taken to be a command reply.
func (c *Client) FetchCommand(ctx context.Context, name string) (response.Response, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, errors.New("api: empty command name")
	}

	body, err := c.getWithRetry(ctx, "/api/commands/"+url.PathEscape(name))
	if err != nil {
		return nil, err
	}

	if resp := response.ParseBytes(body); resp != nil {
		return resp, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("api: command %q: %w", name, ErrMalformed)
	}
	fields["type"] = json.RawMessage(`"command"`)
	retagged, _ := json.Marshal(fields)
	return response.ParseBytes(retagged), nil
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type messageReply struct {
	Response json.RawMessage `json:"response"`
}

// SendMessage runs POST /api/chat/message and returns the raw "response"
// field, unquoted when it is a JSON string. The caller parses it.
func (c *Client) SendMessage(ctx context.Context, sessionID, message string) (string, error) {
	payload, err := json.Marshal(messageRequest{SessionID: sessionID, Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, c.http, http.MethodPost, "/api/chat/message", payload, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp.Body)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reply messageReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("api: chat reply: %w", ErrMalformed)
	}
	raw := bytes.TrimSpace(reply.Response)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return string(raw), nil
}

// HealthStatus is the decoded /health body.
type HealthStatus struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"-"`
	Latency time.Duration  `json:"-"`
}

// Health runs GET /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	body, err := c.getWithRetry(ctx, "/health")
	if err != nil {
		return nil, err
	}

	hs := &HealthStatus{Latency: time.Since(start)}
	if err := json.Unmarshal(body, &hs.Details); err != nil {
		return nil, fmt.Errorf("api: health: %w", ErrMalformed)
	}
	if s, ok := hs.Details["status"].(string); ok {
		hs.Status = s
	}
	return hs, nil
}

// =============================================================================
// TRANSPORT HELPERS
// =============================================================================

// getWithRetry performs a GET, retrying network errors, 5xx and 429 with
// exponential backoff. 4xx replies fail immediately. The whole exchange,
// retries and backoff included, is bounded by the client timeout.
func (c *Client) getWithRetry(parent context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, calculateBackoff(attempt-1)); err != nil {
				return nil, c.deadlineErr(parent, err, lastErr)
			}
		}

		body, err := c.getOnce(ctx, path)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, c.deadlineErr(parent, ctx.Err(), err)
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		c.logger.Debug("retrying request", "path", path, "attempt", attempt+1, "err", err)
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// deadlineErr reports a caller cancellation as-is and wraps an expired
// request budget with the last transport failure.
func (c *Client) deadlineErr(parent context.Context, err, last error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if last == nil {
		return fmt.Errorf("request timed out after %s: %w", c.timeout, err)
	}
	return fmt.Errorf("request timed out after %s: %w (last error: %v)", c.timeout, err, last)
}

func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.do(ctx, c.http, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// do sends one request after waiting on the rate limiter.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body []byte, contentType string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Headers are never logged; they may carry the bearer token.
	c.logger.Debug("request", "method", method, "path", path)
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.logger.Debug("response", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))
	return resp, nil
}

// readResponse reads at most MaxResponseSize bytes.
func readResponse(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	// Anything else from do() is a network-level failure.
	return !errors.Is(err, ErrMalformed)
}

// calculateBackoff returns 500ms, 1s, 2s, ... capped at retryMaxDelay.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
