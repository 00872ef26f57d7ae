// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved Portana transcripts to files.
//
// # Supported Formats
//
//   - markdown: human-readable, with YAML frontmatter
//   - json: the full transcript, re-importable
//   - jsonl: one entry per line
//   - yaml: the transcript with typed replies decoded
//   - html: a single self-contained page
//
// # Usage
//
//	exp, err := export.New("markdown", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(transcript, exp, opts)
//
// Live conversations are converted with model.Log.ToTranscript first.
package export
