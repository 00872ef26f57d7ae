// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "data: {\"type\":\"sources\",\"sources\":[]}\n" +
	"data: {\"type\":\"token\",\"content\":\"Hi\"}\n" +
	"data: {\"type\":\"token\",\"content\":\" there\"}\n" +
	"data: {\"type\":\"done\"}\n"

// chunkReader hands out its chunks one Read at a time.
type chunkReader struct{ chunks [][]byte }

func newChunkReader(s string, cuts ...int) *chunkReader {
	r := &chunkReader{}
	prev := 0
	for _, c := range append(cuts, len(s)) {
		if c > prev {
			r.chunks = append(r.chunks, []byte(s[prev:c]))
			prev = c
		}
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collectString(t *testing.T, r io.Reader) *Assembler {
	t.Helper()
	a, err := Collect(NewStreamFromReader(context.Background(), r, nil), nil)
	require.NoError(t, err)
	return a
}

func TestDecoder_RechunkingInvariance(t *testing.T) {
	for i := 0; i <= len(sampleStream); i++ {
		a := collectString(t, newChunkReader(sampleStream, i))
		require.Equal(t, "Hi there", a.Content(), "split at %d", i)
		require.True(t, a.Done())
		require.NotNil(t, a.Sources())
	}
}

func TestDecoder_RechunkingInvarianceThreeWay(t *testing.T) {
	for i := 0; i <= len(sampleStream); i += 3 {
		for j := i; j <= len(sampleStream); j += 5 {
			a := collectString(t, newChunkReader(sampleStream, i, j))
			require.Equal(t, "Hi there", a.Content(), "splits at %d,%d", i, j)
		}
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	cuts := make([]int, len(sampleStream))
	for i := range cuts {
		cuts[i] = i
	}
	a := collectString(t, newChunkReader(sampleStream, cuts...))
	assert.Equal(t, "Hi there", a.Content())
}

func TestDecoder_SkipsMalformedRecord(t *testing.T) {
	body := "data: {\"type\":\"token\",\"content\":\"A\"}\n" +
		"data: {not json\n" +
		": keep-alive comment\n" +
		"\n" +
		"event: message\n" +
		"data: {\"type\":\"token\",\"content\":\"B\"}\r\n" +
		"data: {\"type\":\"done\",\"total_tokens\":2,\"session_id\":\"s1\"}\n"

	dec := NewDecoder(strings.NewReader(body), nil)
	var types []EventType
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventToken, EventToken, EventDone}, types)
	assert.Equal(t, 1, dec.Skipped)

	a := collectString(t, strings.NewReader(body))
	assert.Equal(t, "AB", a.Content())
	assert.Equal(t, 2, a.Summary().TotalTokens)
	assert.Equal(t, "s1", a.Summary().SessionID)
}

func TestDecoder_DiscardsUnterminatedTail(t *testing.T) {
	body := "data: {\"type\":\"token\",\"content\":\"A\"}\n" +
		"data: {\"type\":\"token\",\"content\":\"B\"}"

	a := collectString(t, strings.NewReader(body))
	assert.Equal(t, "A", a.Content())
	assert.True(t, a.Done(), "EOF finishes the reply")
}

func TestStream_StopsAtDone(t *testing.T) {
	body := "data: {\"type\":\"token\",\"content\":\"A\"}\n" +
		"data: {\"type\":\"done\"}\n" +
		"data: {\"type\":\"token\",\"content\":\"ignored\"}\n"

	s := NewStreamFromReader(context.Background(), strings.NewReader(body), nil)
	defer s.Close()

	ev, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventToken, ev.Type)

	ev, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, EventDone, ev.Type)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_RecvAfterClose(t *testing.T) {
	s := NewStreamFromReader(context.Background(), strings.NewReader(sampleStream), nil)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Recv()
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStreamFromReader(ctx, strings.NewReader(sampleStream), nil)
	defer s.Close()

	_, err := s.Recv()
	require.NoError(t, err)

	cancel()
	_, err = s.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssembler_LateSourcesWin(t *testing.T) {
	var a Assembler
	a.Add(Event{Type: EventSources, Sources: []Source{{Title: "old"}}})
	a.Add(Event{Type: EventToken, Content: "x"})
	a.Add(Event{Type: EventSources, Sources: []Source{{Title: "new"}}})

	assert.Nil(t, a.Sources(), "sources are not final before done")
	assert.Equal(t, "new", a.PendingSources()[0].Title)

	assert.True(t, a.Add(Event{Type: EventDone}))
	require.Len(t, a.Sources(), 1)
	assert.Equal(t, "new", a.Sources()[0].Title)

	// Events after done are ignored.
	a.Add(Event{Type: EventToken, Content: "y"})
	assert.Equal(t, "x", a.Content())
}

func TestAssembler_UnknownEventIgnored(t *testing.T) {
	var a Assembler
	assert.False(t, a.Add(Event{Type: "ping"}))
	assert.Equal(t, "", a.Content())
}

// flushWriter streams sampleStream-like records with a flush after each.
func streamHandler(records []string, hold <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, rec := range records {
			io.WriteString(w, rec)
			flusher.Flush()
		}
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
			}
		}
	}
}

func TestStreamChat_EndToEnd(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/ask", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var q ChatQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.Equal(t, "what do you build?", q.Query)
		assert.Equal(t, "visitor-1", q.SessionID)
		require.NotNil(t, q.Options)
		assert.Equal(t, 3, q.Options.TopK)

		streamHandler([]string{
			"data: {\"type\":\"sources\",\"sources\":[{\"id\":\"p1\",\"type\":\"project\",\"title\":\"Portana\",\"relevance_score\":0.92}]}\n",
			"data: {\"type\":\"token\",\"content\":\"Mostly \"}\n",
			"data: {\"type\":\"tok",
			"en\",\"content\":\"Go.\"}\n",
			"data: {\"type\":\"done\",\"response_time_ms\":120}\n",
		}, nil)(w, r)
	}))

	s, err := c.StreamChat(context.Background(), ChatQuery{
		Query:     "what do you build?",
		SessionID: "visitor-1",
		Options:   &ChatOptions{TopK: 3},
	})
	require.NoError(t, err)

	var tokens []string
	a, err := Collect(s, func(tok string) { tokens = append(tokens, tok) })
	require.NoError(t, err)
	assert.Equal(t, "Mostly Go.", a.Content())
	assert.Equal(t, []string{"Mostly ", "Go."}, tokens)
	require.Len(t, a.Sources(), 1)
	assert.Equal(t, "Portana", a.Sources()[0].Title)
	assert.InDelta(t, 0.92, a.Sources()[0].RelevanceScore, 1e-9)
	assert.EqualValues(t, 120, a.Summary().ResponseTimeMS)
}

func TestStreamChat_StatusErrorBeforeEvents(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model offline", http.StatusServiceUnavailable)
	}))

	s, err := c.StreamChat(context.Background(), ChatQuery{Query: "q"})
	assert.Nil(t, s)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Contains(t, se.Body, "model offline")
}

func TestStreamChat_CloseReleasesBlockedRead(t *testing.T) {
	hold := make(chan struct{})
	defer close(hold)

	c, _ := newTestClient(t, streamHandler([]string{
		"data: {\"type\":\"token\",\"content\":\"partial\"}\n",
	}, hold))

	s, err := c.StreamChat(context.Background(), ChatQuery{Query: "q"})
	require.NoError(t, err)

	ev, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", ev.Content)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Recv()
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrStreamClosed), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv did not return after Close")
	}
}
