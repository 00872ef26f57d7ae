// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/portana/portana-tui/internal/util"
)

// =============================================================================
// STORED TRANSCRIPT TYPES
// =============================================================================

// Transcript is a persisted conversation.
type Transcript struct {
	ID        string    `json:"id" yaml:"id"`
	Summary   string    `json:"summary" yaml:"summary"`
	SessionID string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	BaseURL   string    `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	Entries []StoredEntry `json:"entries" yaml:"entries"`
}

// StoredEntry is one persisted conversation entry. Response holds the
// tagged JSON form of the typed reply, if any.
type StoredEntry struct {
	ID        string          `json:"id" yaml:"id"`
	Role      string          `json:"role" yaml:"role"`
	Content   string          `json:"content" yaml:"content"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Response  json.RawMessage `json:"response,omitempty" yaml:"-"`
	View      string          `json:"view,omitempty" yaml:"view,omitempty"`
	Sources   []StoredSource  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// StoredSource is a persisted retrieval source.
type StoredSource struct {
	ID             string  `json:"id,omitempty" yaml:"id,omitempty"`
	Type           string  `json:"type,omitempty" yaml:"type,omitempty"`
	Title          string  `json:"title" yaml:"title"`
	URL            string  `json:"url,omitempty" yaml:"url,omitempty"`
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`
}

// TranscriptMeta is the listing view of a transcript.
type TranscriptMeta struct {
	ID         string    `json:"id"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EntryCount int       `json:"entry_count"`
	Preview    string    `json:"preview,omitempty"`
}

// ErrTranscriptNotFound is returned when a transcript id has no file.
var ErrTranscriptNotFound = errors.New("transcript not found")

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore saves transcripts as JSON files in BaseDir.
type TranscriptStore struct {
	BaseDir string

	// MaxTranscripts caps how many files are kept (0 = unlimited).
	// The least recently updated are removed first.
	MaxTranscripts int
}

// NewTranscriptStore uses ~/.portana/transcripts.
func NewTranscriptStore() (*TranscriptStore, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewTranscriptStoreWithDir(filepath.Join(dir, "transcripts"))
}

// NewTranscriptStoreWithDir creates a store rooted at baseDir.
func NewTranscriptStoreWithDir(baseDir string) (*TranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, err
	}
	return &TranscriptStore{BaseDir: baseDir, MaxTranscripts: 100}, nil
}

// Save writes t and returns its id, assigning one when empty.
func (s *TranscriptStore) Save(t *Transcript) (string, error) {
	if t.ID == "" {
		t.ID = newTranscriptID()
	} else if err := validateID(t.ID); err != nil {
		return "", err
	}
	if t.Summary == "" {
		t.Summary = summarize(t)
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(s.filePath(t.ID), data, 0o600); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// Load reads the transcript with the given id.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return &t, nil
}

// Latest loads the most recently updated transcript.
func (s *TranscriptStore) Latest() (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(metas[0].ID)
}

// List returns all readable transcripts, most recent first. Corrupt files
// are skipped.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	dirEntries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := make([]TranscriptMeta, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(de.Name(), ".json"))
		if err != nil {
			continue
		}

		preview := ""
		for _, e := range t.Entries {
			if e.Role == "user" {
				preview = util.Truncate(e.Content, 80)
				break
			}
		}
		metas = append(metas, TranscriptMeta{
			ID:         t.ID,
			Summary:    t.Summary,
			CreatedAt:  t.CreatedAt,
			UpdatedAt:  t.UpdatedAt,
			EntryCount: len(t.Entries),
			Preview:    preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Delete removes a transcript.
func (s *TranscriptStore) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// List is newest first.
	for _, m := range metas[s.MaxTranscripts:] {
		_ = s.Delete(m.ID)
	}
}

func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

func summarize(t *Transcript) string {
	for _, e := range t.Entries {
		if e.Role == "user" && strings.TrimSpace(e.Content) != "" {
			line := strings.ReplaceAll(strings.TrimSpace(e.Content), "\n", " ")
			return util.Truncate(line, 50)
		}
	}
	return "New conversation"
}

func newTranscriptID() string {
	return "tr_" + time.Now().Format("20060102-150405") + "_" + uuid.NewString()[:8]
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid transcript id %q", id)
	}
	return nil
}
