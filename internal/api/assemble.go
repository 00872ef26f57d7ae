// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"io"
	"strings"
)

// Assembler folds stream events into a reply. Token content is appended in
// arrival order. Sources may arrive at any point and the latest set wins, but
// they are only reported as final once the stream is done or Finish is called.
type Assembler struct {
	content strings.Builder
	pending []Source
	final   []Source
	done    bool
	summary Event
}

// Add applies one event and reports whether the stream is complete.
func (a *Assembler) Add(ev Event) bool {
	if a.done {
		return true
	}
	switch ev.Type {
	case EventSources:
		a.pending = append([]Source(nil), ev.Sources...)
	case EventToken:
		a.content.WriteString(ev.Content)
	case EventDone:
		a.summary = ev
		a.Finish()
	}
	return a.done
}

// Finish freezes the source list. Called implicitly by a done event; call it
// directly when the body ends without one.
func (a *Assembler) Finish() {
	if a.done {
		return
	}
	a.done = true
	a.final = a.pending
	if a.final == nil {
		a.final = []Source{}
	}
}

// Content returns the text assembled so far.
func (a *Assembler) Content() string { return a.content.String() }

// Done reports whether the source list is final.
func (a *Assembler) Done() bool { return a.done }

// Sources returns the final sources, or nil before Finish.
func (a *Assembler) Sources() []Source { return a.final }

// PendingSources returns the most recent sources seen, final or not.
func (a *Assembler) PendingSources() []Source { return a.pending }

// Summary returns the done event's metadata (zero if none arrived).
func (a *Assembler) Summary() Event { return a.summary }

// Collect drains s into a finished Assembler. s is closed on return.
// onToken, if non-nil, sees each token as it arrives.
func Collect(s *Stream, onToken func(string)) (*Assembler, error) {
	defer s.Close()

	a := &Assembler{}
	for {
		ev, err := s.Recv()
		if errors.Is(err, io.EOF) {
			a.Finish()
			return a, nil
		}
		if err != nil {
			return a, err
		}
		if ev.Type == EventToken && onToken != nil {
			onToken(ev.Content)
		}
		if a.Add(ev) {
			return a, nil
		}
	}
}
