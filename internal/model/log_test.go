// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/response"
)

func TestLog_AppendOrder(t *testing.T) {
	l := NewLog()
	l.Append(NewUserEntry("one"))
	l.Append(NewAssistantEntry("two"))
	l.Append(NewUserEntry("three"))

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "one", entries[0].Content)
	assert.Equal(t, "two", entries[1].Content)
	assert.Equal(t, "three", entries[2].Content)
	assert.Equal(t, RoleAssistant, entries[1].Role)
	assert.Equal(t, 3, l.Len())
}

func TestLog_AppendFillsIDAndTimestamp(t *testing.T) {
	l := NewLog()
	e := l.Append(Entry{Role: RoleUser, Content: "x"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
}

func TestLog_UpdateLast_Streaming(t *testing.T) {
	l := NewLog()
	l.Append(NewUserEntry("q"))
	l.Append(NewStreamingEntry())

	_, err := l.UpdateLast(Patch{Delta: "Hi"})
	require.NoError(t, err)
	_, err = l.UpdateLast(Patch{Sources: []Source{{Title: "Resume"}}})
	require.NoError(t, err)
	e, err := l.UpdateLast(Patch{Delta: " there", Done: true})
	require.NoError(t, err)

	assert.Equal(t, "Hi there", e.Content)
	assert.False(t, e.IsStreaming)
	require.Len(t, e.Sources, 1)
	assert.Equal(t, "Resume", e.Sources[0].Title)

	_, err = l.UpdateLast(Patch{Delta: "!"})
	assert.ErrorIs(t, err, ErrNotStreaming)
	last, _ := l.Last()
	assert.Equal(t, "Hi there", last.Content)
}

func TestLog_UpdateLast_ReplaceContent(t *testing.T) {
	l := NewLog()
	l.Append(NewStreamingEntry())
	text := "fresh"
	e, err := l.UpdateLast(Patch{Content: &text, Delta: "!"})
	require.NoError(t, err)
	assert.Equal(t, "fresh!", e.Content)
}

func TestLog_UpdateLast_Rejected(t *testing.T) {
	l := NewLog()
	_, err := l.UpdateLast(Patch{Delta: "x"})
	assert.ErrorIs(t, err, ErrEmptyLog)

	l.Append(NewAssistantEntry("final"))
	_, err = l.UpdateLast(Patch{Delta: "x"})
	assert.ErrorIs(t, err, ErrNotStreaming)
}

func TestLog_EntriesAreSnapshots(t *testing.T) {
	l := NewLog()
	l.Append(Entry{Role: RoleAssistant, Sources: []Source{{Title: "a", Tags: []string{"go"}}}})

	snap := l.Entries()
	snap[0].Content = "mutated"
	snap[0].Sources[0].Title = "mutated"
	snap[0].Sources[0].Tags[0] = "mutated"

	again := l.Entries()
	assert.Empty(t, again[0].Content)
	assert.Equal(t, "a", again[0].Sources[0].Title)
	assert.Equal(t, "go", again[0].Sources[0].Tags[0])
}

func TestLog_ResponseSnapshotsAreIndependent(t *testing.T) {
	l := NewLog()
	l.Append(NewResponseEntry(response.Parse(`{"type":"text","content":"hi","citations":[{"source":"cv"}]}`)))
	l.Append(NewResponseEntry(response.Parse(`{"type":"hybrid","content":"see","citations":[{"source":"blog"}],"suggestedCommand":"projects"}`)))
	l.Append(NewResponseEntry(response.Parse(`{"type":"command","command":"stack","data":{"k":"v"}}`)))

	snap := l.Entries()
	text := snap[0].Response.(*response.TextResponse)
	text.Content = "tampered"
	text.Citations[0].Source = "tampered"
	hybrid := snap[1].Response.(*response.HybridResponse)
	hybrid.Citations[0].Source = "tampered"
	hybrid.SuggestedCommand = "tampered"
	cmd := snap[2].Response.(*response.CommandResponse)
	cmd.Data[2] = 'X'

	again := l.Entries()
	storedText := again[0].Response.(*response.TextResponse)
	assert.Equal(t, "hi", storedText.Content)
	assert.Equal(t, "cv", storedText.Citations[0].Source)
	storedHybrid := again[1].Response.(*response.HybridResponse)
	assert.Equal(t, "blog", storedHybrid.Citations[0].Source)
	assert.Equal(t, "projects", storedHybrid.SuggestedCommand)
	assert.JSONEq(t, `{"k":"v"}`, string(again[2].Response.(*response.CommandResponse).Data))
}

func TestLog_AppendCopiesResponse(t *testing.T) {
	l := NewLog()
	resp := &response.TextResponse{Content: "hi", Citations: []response.Citation{{Source: "cv"}}}
	l.Append(NewResponseEntry(resp))

	resp.Content = "changed"
	resp.Citations[0].Source = "changed"

	last, ok := l.Last()
	require.True(t, ok)
	assert.Equal(t, "hi", last.Response.Body())
	assert.Equal(t, "cv", last.Citations()[0].Source)
}

func TestLog_Subscribe(t *testing.T) {
	l := NewLog()
	var events []Event
	unsubscribe := l.Subscribe(func(ev Event) { events = append(events, ev) })

	l.Append(NewStreamingEntry())
	_, err := l.UpdateLast(Patch{Delta: "x", Done: true})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, EventAppended, events[0].Kind)
	assert.Equal(t, 0, events[0].Index)
	assert.Equal(t, EventUpdated, events[1].Kind)
	assert.Equal(t, "x", events[1].Entry.Content)

	unsubscribe()
	unsubscribe()
	l.Append(NewUserEntry("ignored"))
	assert.Len(t, events, 2)
}

func TestLog_SubscribeOrder(t *testing.T) {
	l := NewLog()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Subscribe(func(Event) { order = append(order, i) })
	}
	l.Append(NewUserEntry("x"))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLog_ObserverMayReadLog(t *testing.T) {
	l := NewLog()
	var seen int
	l.Subscribe(func(Event) { seen = l.Len() })
	l.Append(NewUserEntry("x"))
	assert.Equal(t, 1, seen)
}

func TestLog_ConcurrentAppend(t *testing.T) {
	l := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(NewUserEntry("x"))
			_ = l.Entries()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())
}

func TestEntry_Citations(t *testing.T) {
	cites := []response.Citation{{Source: "resume"}}
	e := NewResponseEntry(&response.HybridResponse{Content: "c", Citations: cites})
	assert.Equal(t, cites, e.Citations())
	assert.Equal(t, "c", e.Content)

	assert.Nil(t, NewResponseEntry(&response.CommandResponse{Command: "stack"}).Citations())
	assert.Nil(t, NewUserEntry("x").Citations())
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "You", RoleUser.DisplayName())
	assert.Equal(t, "Portana", RoleAssistant.DisplayName())
	assert.Equal(t, "system", Role("system").DisplayName())
}
