// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/render"
)

// =============================================================================
// TURN PRINTER
// =============================================================================

// turnPrinter writes a conversation to a line-oriented terminal. Streaming
// entries are printed token by token as the log is updated; everything
// else is printed whole by Flush once the turn has finished.
type turnPrinter struct {
	w        io.Writer
	renderer *render.Renderer
	log      *model.Log

	mu       sync.Mutex
	streamed map[string]string // entry id -> text already printed
	next     int               // first log index not yet flushed
}

func newTurnPrinter(w io.Writer, r *render.Renderer, l *model.Log) *turnPrinter {
	return &turnPrinter{w: w, renderer: r, log: l, streamed: make(map[string]string), next: l.Len()}
}

// Observe is a model.Observer.
func (p *turnPrinter) Observe(ev model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := ev.Entry
	printed, tracked := p.streamed[e.ID]
	switch {
	case ev.Kind == model.EventAppended && e.IsStreaming:
		p.streamed[e.ID] = ""
		fmt.Fprintln(p.w, p.renderer.Theme().AssistantLabel.Render(e.Role.DisplayName()))
	case ev.Kind == model.EventUpdated && tracked:
		if strings.HasPrefix(e.Content, printed) {
			fmt.Fprint(p.w, e.Content[len(printed):])
		} else {
			// replaced wholesale, e.g. by the error reply
			fmt.Fprint(p.w, "\n"+e.Content)
		}
		p.streamed[e.ID] = e.Content
		if !e.IsStreaming {
			fmt.Fprintln(p.w)
			if len(e.Sources) > 0 {
				fmt.Fprintln(p.w, p.renderer.Sources(e.Sources))
			}
		}
	}
}

// Flush prints entries appended since the last flush, skipping user input
// (already on screen) and entries that were streamed.
func (p *turnPrinter) Flush(includeUser bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.log.Entries()
	for _, e := range entries[min(p.next, len(entries)):] {
		if _, ok := p.streamed[e.ID]; ok {
			continue
		}
		if e.Role == model.RoleUser && !includeUser {
			continue
		}
		fmt.Fprintln(p.w, p.renderer.Entry(e))
		fmt.Fprintln(p.w)
	}
	p.next = len(entries)
}

// entryInfos converts log entries for JSON output.
func entryInfos(entries []model.Entry) []EntryInfo {
	out := make([]EntryInfo, 0, len(entries))
	for _, e := range entries {
		info := EntryInfo{Role: string(e.Role), Content: e.Content, View: e.View}
		if e.Response != nil {
			if raw, err := json.Marshal(e.Response); err == nil {
				info.Response = raw
			}
		}
		out = append(out, info)
	}
	return out
}
