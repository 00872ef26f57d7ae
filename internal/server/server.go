// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/response"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the client's default base URL.
	DefaultAddr = "127.0.0.1:3000"

	// DefaultTokenDelay paces streamed tokens.
	DefaultTokenDelay = 25 * time.Millisecond

	// MaxRequestBodySize caps POST bodies (64KB).
	MaxRequestBodySize = 64 * 1024

	// MaxQueryLength caps chat input in runes.
	MaxQueryLength = 4000

	// Version is reported by /health.
	Version = "0.1.0"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts handled requests.
type Stats struct {
	Commands  atomic.Int64
	Messages  atomic.Int64
	Streams   atomic.Int64
	Failures  atomic.Int64
	StartTime time.Time

	mu       sync.Mutex
	sessions map[string]struct{}
}

func newStats() *Stats {
	return &Stats{StartTime: time.Now(), sessions: make(map[string]struct{})}
}

func (s *Stats) seen(sessionID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	s.sessions[sessionID] = struct{}{}
	s.mu.Unlock()
}

// Sessions returns the number of distinct session ids observed.
func (s *Stats) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// ============================================================================
// SERVER
// ============================================================================

// Options configures the mock backend. Zero values select defaults.
type Options struct {
	Addr      string
	Portfolio *Portfolio
	Registry  *commands.Registry

	// TokenDelay paces streamed tokens. Negative disables pacing.
	TokenDelay time.Duration

	// FailCommands answer 503, which exercises the client's offline path.
	FailCommands []string

	// AuthToken, when set, is required as a bearer credential.
	AuthToken string

	// RatePerSecond limits each client IP. Zero disables limiting.
	RatePerSecond float64

	CORS   *CORSConfig
	Logger *log.Logger
}

// Server is a local stand-in for the Portana backend.
type Server struct {
	addr       string
	portfolio  *Portfolio
	registry   *commands.Registry
	tokenDelay time.Duration
	failing    map[string]bool
	logger     *log.Logger
	stats      *Stats

	mux     *http.ServeMux
	handler http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		addr:       opts.Addr,
		portfolio:  opts.Portfolio,
		registry:   opts.Registry,
		tokenDelay: opts.TokenDelay,
		failing:    make(map[string]bool),
		logger:     logging.Component(opts.Logger, "server"),
		stats:      newStats(),
		mux:        http.NewServeMux(),
	}
	if s.addr == "" {
		s.addr = DefaultAddr
	}
	if s.portfolio == nil {
		s.portfolio = DefaultPortfolio()
	}
	if s.registry == nil {
		s.registry = commands.DefaultRegistry()
	}
	if s.tokenDelay == 0 {
		s.tokenDelay = DefaultTokenDelay
	}
	for _, name := range opts.FailCommands {
		s.failing[commands.Normalize(strings.TrimPrefix(name, "/"))] = true
	}

	s.setupRoutes()

	var limiter *RateLimiter
	if opts.RatePerSecond > 0 {
		limiter = NewRateLimiter(opts.RatePerSecond, int(max(1, opts.RatePerSecond)))
	}
	s.handler = Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger),
		SecurityHeadersMiddleware(),
		CORSMiddleware(opts.CORS),
		RateLimitMiddleware(limiter, s.logger),
		AuthMiddleware(opts.AuthToken),
	)(s.mux)
	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Stats returns the live counters.
func (s *Server) Stats() *Stats { return s.stats }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/commands/{name}", s.handleCommand)
	s.mux.HandleFunc("POST /api/chat/message", s.handleMessage)
	s.mux.HandleFunc("POST /api/chat/ask", s.handleAsk)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

// ============================================================================
// COMMANDS
// ============================================================================

// handleCommand serves GET /api/commands/{name}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.stats.Commands.Add(1)
	name := commands.Normalize(r.PathValue("name"))

	if s.failing[name] {
		s.stats.Failures.Add(1)
		writeError(w, http.StatusServiceUnavailable, "Command temporarily unavailable")
		return
	}

	fx, ok := s.portfolio.Command(name)
	if !ok {
		if _, known := s.registry.Lookup(name); !known {
			writeError(w, http.StatusNotFound, "Unknown command: /"+name)
			return
		}
		fx = CommandFixture{Content: "Nothing here yet for /" + name + "."}
	}

	reply := &response.CommandResponse{Command: name, Content: fx.Content, Data: json.RawMessage("{}")}
	if fx.Data != nil {
		data, err := json.Marshal(fx.Data)
		if err != nil {
			s.logger.Error("encode command data", "command", name, "err", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		reply.Data = data
	}
	writeJSON(w, http.StatusOK, reply)
}

// ============================================================================
// CHAT
// ============================================================================

type messageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleMessage serves POST /api/chat/message. The reply is a tagged
// response encoded as a JSON string inside {"response": ...}.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	s.stats.Messages.Add(1)

	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len([]rune(msg)) > MaxQueryLength {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("message exceeds %d characters", MaxQueryLength))
		return
	}
	s.stats.seen(req.SessionID)

	content, sources, suggest := s.portfolio.Answer(msg, 0)
	citations := make([]response.Citation, 0, len(sources))
	for _, src := range sources {
		citations = append(citations, response.Citation{Source: src.Title})
	}

	var reply response.Response
	if suggest != "" {
		reply = &response.HybridResponse{
			Content:          content,
			Citations:        citations,
			SuggestedCommand: suggest,
			ShowSuggestion:   true,
		}
	} else {
		reply = &response.TextResponse{Content: content, Citations: citations}
	}

	encoded, err := json.Marshal(reply)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": string(encoded)})
}

// handleAsk serves POST /api/chat/ask as a "data: " framed event stream:
// one sources record, the answer as token records, then done.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	s.stats.Streams.Add(1)
	start := time.Now()

	var q api.ChatQuery
	if !decodeBody(w, r, &q) {
		return
	}
	query := strings.TrimSpace(q.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	s.stats.seen(q.SessionID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	topK := 0
	if q.Options != nil {
		topK = q.Options.TopK
	}
	content, sources, _ := s.portfolio.Answer(query, topK)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	if err := s.sendEvent(w, flusher, api.Event{Type: api.EventSources, Sources: sources}); err != nil {
		return
	}

	tokens := strings.SplitAfter(content, " ")
	for _, tok := range tokens {
		if s.tokenDelay > 0 {
			select {
			case <-ctx.Done():
				s.logger.Debug("stream cancelled by client", "session", q.SessionID)
				return
			case <-time.After(s.tokenDelay):
			}
		} else if ctx.Err() != nil {
			return
		}
		if err := s.sendEvent(w, flusher, api.Event{Type: api.EventToken, Content: tok}); err != nil {
			return
		}
	}

	s.sendEvent(w, flusher, api.Event{
		Type:           api.EventDone,
		TotalTokens:    len(tokens),
		ResponseTimeMS: time.Since(start).Milliseconds(),
		SessionID:      q.SessionID,
	})
}

func (s *Server) sendEvent(w http.ResponseWriter, flusher http.Flusher, ev api.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

// HealthResponse is the /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Commands  int    `json:"commands"`
	Documents int    `json:"documents"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		Uptime:    time.Since(s.stats.StartTime).Round(time.Second).String(),
		Commands:  len(s.portfolio.Commands),
		Documents: len(s.portfolio.Documents),
	})
}

// StatsResponse is the /stats body.
type StatsResponse struct {
	Commands  int64 `json:"commands"`
	Messages  int64 `json:"messages"`
	Streams   int64 `json:"streams"`
	Failures  int64 `json:"failures"`
	Sessions  int   `json:"sessions"`
	UptimeSec int64 `json:"uptime_sec"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Commands:  s.stats.Commands.Load(),
		Messages:  s.stats.Messages.Load(),
		Streams:   s.stats.Streams.Load(),
		Failures:  s.stats.Failures.Load(),
		Sessions:  s.stats.Sessions(),
		UptimeSec: int64(time.Since(s.stats.StartTime).Seconds()),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.server = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("mock backend listening", "addr", s.addr, "version", Version)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down", "commands", s.stats.Commands.Load(), "streams", s.stats.Streams.Load())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message, "status": status})
}
