// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// CommandInfo is one registry entry in "portana commands --json".
type CommandInfo struct {
	Command     string `json:"command"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SessionInfo is printed by "portana session".
type SessionInfo struct {
	ID        string   `json:"id"`
	Store     string   `json:"store"`
	Persisted bool     `json:"persisted"`
	Gated     []string `json:"gated"`
	Used      []string `json:"used"`
}

// HealthInfo is printed by "portana health".
type HealthInfo struct {
	BaseURL   string         `json:"base_url"`
	Status    string         `json:"status"`
	LatencyMS int64          `json:"latency_ms"`
	Details   map[string]any `json:"details,omitempty"`
}

// AskResult is printed by "portana ask --json".
type AskResult struct {
	Query          string       `json:"query"`
	Answer         string       `json:"answer"`
	Sources        []SourceInfo `json:"sources,omitempty"`
	TotalTokens    int          `json:"total_tokens,omitempty"`
	ResponseTimeMS int64        `json:"response_time_ms,omitempty"`
	SessionID      string       `json:"session_id,omitempty"`
}

// SourceInfo is a cited document.
type SourceInfo struct {
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Type  string  `json:"type,omitempty"`
	Score float64 `json:"relevance_score"`
}

// TurnResult is printed by "portana run --json".
type TurnResult struct {
	Input   string      `json:"input"`
	Outcome string      `json:"outcome"`
	Entries []EntryInfo `json:"entries"`
}

// EntryInfo is a log entry in JSON output.
type EntryInfo struct {
	Role     string          `json:"role"`
	Content  string          `json:"content"`
	Response json.RawMessage `json:"response,omitempty"`
	View     string          `json:"view,omitempty"`
}
