// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"bytes"
	"encoding/json"
	"strings"
)

// =============================================================================
// TYPES
// =============================================================================

// Kind is the discriminator carried in the "type" field of every reply.
type Kind string

const (
	KindText    Kind = "text"
	KindHybrid  Kind = "hybrid"
	KindCommand Kind = "command"
)

// Citation points at the material an answer was drawn from.
type Citation struct {
	Source  string `json:"source" yaml:"source"`
	Snippet string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Response is implemented by TextResponse, HybridResponse and CommandResponse.
// The unexported method keeps the set closed.
type Response interface {
	// Kind returns the variant tag.
	Kind() Kind
	// Body returns the human readable content of the reply.
	Body() string

	isResponse()
}

// TextResponse is a plain answer.
type TextResponse struct {
	Content   string     `json:"content"`
	Citations []Citation `json:"citations"`
}

// HybridResponse is an answer that may suggest running a command.
type HybridResponse struct {
	Content          string     `json:"content"`
	Citations        []Citation `json:"citations"`
	SuggestedCommand string     `json:"suggestedCommand,omitempty"`
	ShowSuggestion   bool       `json:"showSuggestion"`
}

// CommandResponse is the structured result of a slash command. Data is kept
// as raw JSON; its shape depends on the command.
type CommandResponse struct {
	Command string          `json:"command"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data"`
}

func (*TextResponse) Kind() Kind    { return KindText }
func (*HybridResponse) Kind() Kind  { return KindHybrid }
func (*CommandResponse) Kind() Kind { return KindCommand }

func (r *TextResponse) Body() string    { return r.Content }
func (r *HybridResponse) Body() string  { return r.Content }
func (r *CommandResponse) Body() string { return r.Content }

func (*TextResponse) isResponse()    {}
func (*HybridResponse) isResponse()  {}
func (*CommandResponse) isResponse() {}

// Suggestion returns the command the UI should offer to run, if any.
func (r *HybridResponse) Suggestion() (string, bool) {
	cmd := strings.TrimPrefix(strings.TrimSpace(r.SuggestedCommand), "/")
	if !r.ShowSuggestion || cmd == "" {
		return "", false
	}
	return cmd, true
}

// Clone returns a deep copy of r, including citations and command data.
func Clone(r Response) Response {
	switch v := r.(type) {
	case *TextResponse:
		if v == nil {
			return nil
		}
		c := *v
		c.Citations = cloneCitations(v.Citations)
		return &c
	case *HybridResponse:
		if v == nil {
			return nil
		}
		c := *v
		c.Citations = cloneCitations(v.Citations)
		return &c
	case *CommandResponse:
		if v == nil {
			return nil
		}
		c := *v
		if v.Data != nil {
			c.Data = append(json.RawMessage(nil), v.Data...)
		}
		return &c
	}
	return nil
}

func cloneCitations(cs []Citation) []Citation {
	if cs == nil {
		return nil
	}
	return append(make([]Citation, 0, len(cs)), cs...)
}

// HasData reports whether the command carried a non-empty payload.
func (r *CommandResponse) HasData() bool {
	d := bytes.TrimSpace(r.Data)
	return len(d) > 0 && !bytes.Equal(d, emptyObject) && !bytes.Equal(d, []byte("[]"))
}

// =============================================================================
// JSON ENCODING
// =============================================================================

// MarshalJSON writes the variant with its "type" tag.
func (r *TextResponse) MarshalJSON() ([]byte, error) {
	type alias TextResponse
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindText, (*alias)(r)})
}

// MarshalJSON writes the variant with its "type" tag.
func (r *HybridResponse) MarshalJSON() ([]byte, error) {
	type alias HybridResponse
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindHybrid, (*alias)(r)})
}

// MarshalJSON writes the variant with its "type" tag.
func (r *CommandResponse) MarshalJSON() ([]byte, error) {
	type alias CommandResponse
	return json.Marshal(struct {
		Type Kind `json:"type"`
		*alias
	}{KindCommand, (*alias)(r)})
}
