// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/portana/portana-tui/internal/response"
)

// Role identifies who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DisplayName returns the label shown next to the entry.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Portana"
	default:
		return string(r)
	}
}

// Tone marks assistant entries that are notices rather than answers.
type Tone int

const (
	ToneNormal Tone = iota
	// ToneWarning is used for non-error notices such as a gated command.
	ToneWarning
	// ToneError is used for the generic failure reply.
	ToneError
)

// Source is a document cited by a streamed answer.
type Source struct {
	ID             string
	Type           string
	Title          string
	URL            string
	Tags           []string
	RelevanceScore float64
}

// Entry is one message in the conversation.
type Entry struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time

	// Response is the typed reply, if the backend sent one.
	Response response.Response

	// View is the legacy presentational block for offline fallbacks.
	View string

	Sources     []Source
	IsStreaming bool
	Tone        Tone
}

// NewUserEntry creates an entry for typed input.
func NewUserEntry(content string) Entry {
	return Entry{ID: newID(), Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantEntry creates a finished assistant entry.
func NewAssistantEntry(content string) Entry {
	return Entry{ID: newID(), Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewResponseEntry creates an assistant entry for a typed reply.
func NewResponseEntry(resp response.Response) Entry {
	e := NewAssistantEntry(resp.Body())
	e.Response = resp
	return e
}

// NewNoticeEntry creates an assistant notice with the given tone.
func NewNoticeEntry(content string, tone Tone) Entry {
	e := NewAssistantEntry(content)
	e.Tone = tone
	return e
}

// GreetingText opens every new conversation.
const GreetingText = "Hey! I'm Portana, an AI portfolio assistant. Ask me about projects, experience, tech stack, or use commands like /projects, /experience, /stack, and more!"

// NewGreeting returns the welcome entry.
func NewGreeting() Entry {
	return NewAssistantEntry(GreetingText)
}

// NewStreamingEntry creates an empty assistant entry that UpdateLast may
// fill in.
func NewStreamingEntry() Entry {
	e := NewAssistantEntry("")
	e.IsStreaming = true
	return e
}

// Citations returns the citations carried by the typed reply, if any.
func (e Entry) Citations() []response.Citation {
	switch r := e.Response.(type) {
	case *response.TextResponse:
		return r.Citations
	case *response.HybridResponse:
		return r.Citations
	}
	return nil
}

// clone deep-copies the entry so callers cannot alias log storage.
func (e Entry) clone() Entry {
	if e.Response != nil {
		e.Response = response.Clone(e.Response)
	}
	if e.Sources != nil {
		src := make([]Source, len(e.Sources))
		for i, s := range e.Sources {
			s.Tags = append([]string(nil), s.Tags...)
			src[i] = s
		}
		e.Sources = src
	}
	return e
}

func newID() string {
	return uuid.NewString()
}
