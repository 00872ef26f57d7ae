// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/logging"
)

// MaxLineSize caps a single framed record. Longer lines are dropped.
const MaxLineSize = 256 * 1024

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatQuery is the body of POST /api/chat/ask.
type ChatQuery struct {
	Query     string       `json:"query"`
	SessionID string       `json:"session_id,omitempty"`
	Filters   *ChatFilters `json:"filters,omitempty"`
	Options   *ChatOptions `json:"options,omitempty"`
}

// ChatFilters narrows retrieval.
type ChatFilters struct {
	Types     []string   `json:"types,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
}

// DateRange bounds retrieved material by date (ISO 8601 strings).
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ChatOptions tunes generation.
type ChatOptions struct {
	TopK   int   `json:"top_k,omitempty"`
	Stream *bool `json:"stream,omitempty"`
}

// EventType is the "type" of a stream record.
type EventType string

const (
	EventSources EventType = "sources"
	EventToken   EventType = "token"
	EventDone    EventType = "done"
)

// Source is a retrieved document backing the answer.
type Source struct {
	ID             string   `json:"id,omitempty"`
	Type           string   `json:"type,omitempty"`
	Title          string   `json:"title"`
	URL            string   `json:"url,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	RelevanceScore float64  `json:"relevance_score,omitempty"`
}

// Event is one decoded stream record.
type Event struct {
	Type    EventType `json:"type"`
	Sources []Source  `json:"sources,omitempty"`
	Content string    `json:"content,omitempty"`

	// Set on done.
	TotalTokens    int    `json:"total_tokens,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns a "data: " framed body into Events. Reads may split records
// anywhere; only newline-terminated lines are decoded and an unterminated
// tail at EOF is discarded. A record that fails to decode is logged and
// skipped.
type Decoder struct {
	r      *bufio.Reader
	logger *log.Logger

	// Skipped counts records dropped as malformed or oversized.
	Skipped int
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader, logger *log.Logger) *Decoder {
	return &Decoder{
		r:      bufio.NewReader(r),
		logger: logging.OrDiscard(logger),
	}
}

// Next returns the next event, or io.EOF at end of input.
func (d *Decoder) Next() (Event, error) {
	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(bytes.TrimSpace(line)) > 0 {
					d.logger.Debug("discarding unterminated stream fragment", "bytes", len(line))
				}
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if len(line) > MaxLineSize {
			d.Skipped++
			d.logger.Warn("skipping oversized stream record", "bytes", len(line))
			continue
		}

		line = bytes.TrimSpace(line)
		payload, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			// Blank separators, comments and other SSE fields.
			continue
		}
		payload = bytes.TrimSpace(payload)
		if bytes.Equal(payload, []byte("[DONE]")) {
			return Event{Type: EventDone}, nil
		}

		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			d.Skipped++
			d.logger.Warn("skipping malformed stream record", "err", err, "record", truncate(payload, 120))
			continue
		}
		return ev, nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is an in-flight /api/chat/ask reply. Recv yields events until the
// body ends or a done event arrives. Close releases the connection; it is
// safe to call more than once and from another goroutine.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser
	dec    *Decoder

	mu       sync.Mutex
	finished bool
	closed   bool
}

// newStream wraps an already-open body.
func newStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, logger *log.Logger) *Stream {
	return &Stream{
		ctx:    ctx,
		cancel: cancel,
		body:   body,
		dec:    NewDecoder(body, logger),
	}
}

// NewStreamFromReader builds a Stream over any reader. Useful for replaying
// captured bodies.
func NewStreamFromReader(ctx context.Context, r io.Reader, logger *log.Logger) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return newStream(ctx, cancel, rc, logger)
}

// Recv returns the next event. It returns io.EOF after the done event or at
// end of body, ErrStreamClosed after Close, or the context error once the
// stream's context is cancelled.
func (s *Stream) Recv() (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Event{}, ErrStreamClosed
	}
	if s.finished {
		return Event{}, io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		return Event{}, err
	}

	ev, err := s.dec.Next()
	if err != nil {
		// A cancelled context surfaces as a read error on the body.
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			return Event{}, ctxErr
		}
		if err == io.EOF {
			s.finished = true
		}
		return Event{}, err
	}
	if err := s.ctx.Err(); err != nil {
		return Event{}, err
	}
	if ev.Type == EventDone {
		s.finished = true
	}
	return ev, nil
}

// Skipped reports how many malformed records were dropped so far.
func (s *Stream) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dec.Skipped
}

// Close cancels the request and closes the body.
func (s *Stream) Close() error {
	// Cancel first so a Recv blocked on the network returns.
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// StreamChat opens POST /api/chat/ask. A non-2xx status is returned here as a
// *StatusError and no Stream is created.
func (c *Client) StreamChat(ctx context.Context, q ChatQuery) (*Stream, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	resp, err := c.doStream(ctx, payload)
	if err != nil {
		cancel()
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		body, _ := readResponse(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, fmt.Errorf("api: chat stream: %w", ErrMalformed)
	}
	return newStream(ctx, cancel, resp.Body, c.logger), nil
}

func (c *Client) doStream(ctx context.Context, payload []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("stream request", "path", "/api/chat/ask")
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
