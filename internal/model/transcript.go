// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"time"

	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// TRANSCRIPT CONVERSION
// =============================================================================

// ToTranscript converts the finished entries to their persisted form.
// An entry still streaming is stored with whatever text it has so far.
func (l *Log) ToTranscript(sessionID, baseURL string) *storage.Transcript {
	entries := l.Entries()
	t := &storage.Transcript{
		SessionID: sessionID,
		BaseURL:   baseURL,
		Entries:   make([]storage.StoredEntry, 0, len(entries)),
	}
	for _, e := range entries {
		t.Entries = append(t.Entries, toStored(e))
	}
	if len(entries) > 0 {
		t.CreatedAt = entries[0].Timestamp
		t.UpdatedAt = entries[len(entries)-1].Timestamp
	} else {
		t.CreatedAt = time.Now()
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

// Restore replaces the log contents with a saved transcript. Observers
// receive a single EventReset.
func (l *Log) Restore(t *storage.Transcript) {
	entries := make([]Entry, 0, len(t.Entries))
	for _, se := range t.Entries {
		entries = append(entries, fromStored(se))
	}

	l.mu.Lock()
	l.entries = entries
	n := len(entries)
	l.mu.Unlock()

	l.notify(Event{Kind: EventReset, Index: n - 1})
}

func toStored(e Entry) storage.StoredEntry {
	se := storage.StoredEntry{
		ID:        e.ID,
		Role:      string(e.Role),
		Content:   e.Content,
		Timestamp: e.Timestamp,
		View:      e.View,
	}
	if e.Response != nil {
		if raw, err := json.Marshal(e.Response); err == nil {
			se.Response = raw
		}
	}
	for _, s := range e.Sources {
		se.Sources = append(se.Sources, storage.StoredSource{
			ID:             s.ID,
			Type:           s.Type,
			Title:          s.Title,
			URL:            s.URL,
			RelevanceScore: s.RelevanceScore,
		})
	}
	return se
}

func fromStored(se storage.StoredEntry) Entry {
	e := Entry{
		ID:        se.ID,
		Role:      Role(se.Role),
		Content:   se.Content,
		Timestamp: se.Timestamp,
		View:      se.View,
	}
	if e.ID == "" {
		e.ID = newID()
	}
	if len(se.Response) > 0 {
		e.Response = response.ParseBytes(se.Response)
	}
	for _, s := range se.Sources {
		e.Sources = append(e.Sources, Source{
			ID:             s.ID,
			Type:           s.Type,
			Title:          s.Title,
			URL:            s.URL,
			RelevanceScore: s.RelevanceScore,
		})
	}
	return e
}
