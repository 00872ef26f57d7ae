// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/portana/portana-tui/internal/response"
)

var (
	// ErrEmptyLog is returned by UpdateLast on an empty log.
	ErrEmptyLog = errors.New("conversation log is empty")

	// ErrNotStreaming is returned by UpdateLast when the trailing entry has
	// already been finalised.
	ErrNotStreaming = errors.New("last entry is not streaming")
)

// EventKind says what changed.
type EventKind int

const (
	EventAppended EventKind = iota
	EventUpdated
	// EventReset follows Restore; observers should redraw everything.
	EventReset
)

// Event is delivered to observers after each change.
type Event struct {
	Kind  EventKind
	Index int
	Entry Entry
}

// Observer receives change events. It runs on the writer's goroutine after
// the log lock is released.
type Observer func(Event)

// Patch describes an UpdateLast mutation. Zero fields are left alone.
type Patch struct {
	// Content replaces the text when non-nil.
	Content *string
	// Delta is appended after Content is applied.
	Delta string
	// Sources replaces the source list when non-nil.
	Sources []Source
	// Response attaches a typed reply.
	Response response.Response
	// Tone replaces the entry tone when non-zero.
	Tone Tone
	// Done clears IsStreaming. No further updates are accepted.
	Done bool
}

// Log is the ordered record of a conversation. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{observers: make(map[int]Observer)}
}

// Append adds e at the end and returns the stored copy. Missing ID and
// timestamp are filled in.
func (l *Log) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e = e.clone()

	l.mu.Lock()
	l.entries = append(l.entries, e)
	idx := len(l.entries) - 1
	l.mu.Unlock()

	l.notify(Event{Kind: EventAppended, Index: idx, Entry: e.clone()})
	return e.clone()
}

// UpdateLast mutates the trailing entry, which must be streaming.
func (l *Log) UpdateLast(p Patch) (Entry, error) {
	l.mu.Lock()
	if len(l.entries) == 0 {
		l.mu.Unlock()
		return Entry{}, ErrEmptyLog
	}
	idx := len(l.entries) - 1
	e := &l.entries[idx]
	if !e.IsStreaming {
		l.mu.Unlock()
		return Entry{}, ErrNotStreaming
	}

	if p.Content != nil {
		e.Content = *p.Content
	}
	e.Content += p.Delta
	if p.Sources != nil {
		e.Sources = append([]Source(nil), p.Sources...)
	}
	if p.Response != nil {
		e.Response = p.Response
	}
	if p.Tone != ToneNormal {
		e.Tone = p.Tone
	}
	if p.Done {
		e.IsStreaming = false
	}
	updated := e.clone()
	l.mu.Unlock()

	l.notify(Event{Kind: EventUpdated, Index: idx, Entry: updated.clone()})
	return updated, nil
}

// Entries returns a snapshot in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.clone()
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Last returns the trailing entry.
func (l *Log) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// Subscribe registers o and returns a function that removes it.
func (l *Log) Subscribe(o Observer) func() {
	l.obsMu.Lock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = o
	l.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.obsMu.Lock()
			delete(l.observers, id)
			l.obsMu.Unlock()
		})
	}
}

func (l *Log) notify(ev Event) {
	l.obsMu.Lock()
	ids := make([]int, 0, len(l.observers))
	for id := range l.observers {
		ids = append(ids, id)
	}
	obs := make([]Observer, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		obs = append(obs, l.observers[id])
	}
	l.obsMu.Unlock()

	for _, o := range obs {
		o(ev)
	}
}
