// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// YAML EXPORTER
// =============================================================================

// YAMLExporter exports transcripts as YAML. Typed replies, which are stored
// as raw JSON, are decoded so the document reads as plain YAML.
type YAMLExporter struct {
	options *Options
}

// NewYAMLExporter creates a new YAML exporter.
func NewYAMLExporter(opts *Options) *YAMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &YAMLExporter{options: opts}
}

type yamlDocument struct {
	ID        string      `yaml:"id"`
	Title     string      `yaml:"title"`
	SessionID string      `yaml:"session_id,omitempty"`
	BaseURL   string      `yaml:"base_url,omitempty"`
	CreatedAt *time.Time  `yaml:"created_at,omitempty"`
	UpdatedAt *time.Time  `yaml:"updated_at,omitempty"`
	Entries   []yamlEntry `yaml:"entries"`
}

type yamlEntry struct {
	Role      string                 `yaml:"role"`
	Content   string                 `yaml:"content"`
	Timestamp *time.Time             `yaml:"timestamp,omitempty"`
	View      string                 `yaml:"view,omitempty"`
	Response  map[string]any         `yaml:"response,omitempty"`
	Sources   []storage.StoredSource `yaml:"sources,omitempty"`
}

// Export converts a transcript to YAML.
func (e *YAMLExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	doc := yamlDocument{
		ID:        t.ID,
		Title:     title(t),
		SessionID: t.SessionID,
		BaseURL:   t.BaseURL,
		Entries:   make([]yamlEntry, 0, len(t.Entries)),
	}
	if e.options.IncludeMetadata {
		created, updated := t.CreatedAt, t.UpdatedAt
		doc.CreatedAt, doc.UpdatedAt = &created, &updated
	}

	for _, entry := range t.Entries {
		ye := yamlEntry{
			Role:    entry.Role,
			Content: entry.Content,
			View:    entry.View,
			Sources: entry.Sources,
		}
		if e.options.IncludeTimestamps && !entry.Timestamp.IsZero() {
			ts := entry.Timestamp
			ye.Timestamp = &ts
		}
		if len(entry.Response) > 0 {
			var m map[string]any
			if err := json.Unmarshal(entry.Response, &m); err == nil {
				ye.Response = m
			}
		}
		doc.Entries = append(doc.Entries, ye)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for YAML.
func (e *YAMLExporter) FileExtension() string {
	return ".yaml"
}

// MimeType returns the MIME type for YAML.
func (e *YAMLExporter) MimeType() string {
	return "application/yaml"
}
