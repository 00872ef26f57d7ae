// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"

	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the complete transcript as indented JSON. The output
// has the same shape as the transcript store files and can be re-imported.
// Options do not filter JSON output.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a transcript to JSON format.
func (e *JSONExporter) Export(t *storage.Transcript) ([]byte, error) {
	if t == nil {
		return nil, ErrNilTranscript
	}
	return json.MarshalIndent(t, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// =============================================================================
// JSONL EXPORTER
// =============================================================================

// JSONLExporter writes one entry per line, suited to log pipelines.
// Each line carries the transcript id so lines from several files can be mixed.
type JSONLExporter struct {
	options *Options
}

// NewJSONLExporter creates a new JSON Lines exporter.
func NewJSONLExporter(opts *Options) *JSONLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONLExporter{options: opts}
}

type jsonlLine struct {
	Transcript string `json:"transcript"`
	Index      int    `json:"index"`
	storage.StoredEntry
}

// Export converts a transcript to JSON Lines.
func (e *JSONLExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, entry := range t.Entries {
		if err := enc.Encode(jsonlLine{Transcript: t.ID, Index: i, StoredEntry: entry}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// FileExtension returns the file extension for JSON Lines.
func (e *JSONLExporter) FileExtension() string {
	return ".jsonl"
}

// MimeType returns the MIME type for JSON Lines.
func (e *JSONLExporter) MimeType() string {
	return "application/jsonl"
}
