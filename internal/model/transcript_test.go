// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/response"
)

func TestTranscript_RoundTrip(t *testing.T) {
	l := NewLog()
	l.Append(NewUserEntry("/stack"))
	l.Append(NewResponseEntry(&response.HybridResponse{
		Content:          "Go mostly",
		Citations:        []response.Citation{},
		SuggestedCommand: "/projects",
		ShowSuggestion:   true,
	}))
	fallback := NewAssistantEntry("offline")
	fallback.View = "stack"
	l.Append(fallback)
	l.Append(Entry{Role: RoleAssistant, Content: "streamed", Sources: []Source{{ID: "s1", Title: "Blog", RelevanceScore: 0.9}}})

	tr := l.ToTranscript("visitor-1", "http://x")
	assert.Equal(t, "visitor-1", tr.SessionID)
	require.Len(t, tr.Entries, 4)
	assert.NotEmpty(t, tr.Entries[1].Response)

	var events []Event
	restored := NewLog()
	restored.Subscribe(func(ev Event) { events = append(events, ev) })
	restored.Restore(tr)

	require.Len(t, events, 1)
	assert.Equal(t, EventReset, events[0].Kind)

	got := restored.Entries()
	require.Len(t, got, 4)
	assert.Equal(t, RoleUser, got[0].Role)

	hybrid, ok := got[1].Response.(*response.HybridResponse)
	require.True(t, ok, "got %T", got[1].Response)
	assert.Equal(t, "/projects", hybrid.SuggestedCommand)
	assert.True(t, hybrid.ShowSuggestion)

	assert.Equal(t, "stack", got[2].View)
	require.Len(t, got[3].Sources, 1)
	assert.Equal(t, "Blog", got[3].Sources[0].Title)
	assert.InDelta(t, 0.9, got[3].Sources[0].RelevanceScore, 1e-9)
}

func TestTranscript_Empty(t *testing.T) {
	tr := NewLog().ToTranscript("", "")
	assert.Empty(t, tr.Entries)
	assert.False(t, tr.CreatedAt.IsZero())
}
