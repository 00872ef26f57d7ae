// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown format.
func (e *MarkdownExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title(t)))
		if t.SessionID != "" {
			fmt.Fprintf(&sb, "session: %s\n", escapeYAML(t.SessionID))
		}
		if t.BaseURL != "" {
			fmt.Fprintf(&sb, "backend: %s\n", escapeYAML(t.BaseURL))
		}
		fmt.Fprintf(&sb, "date: %s\n", t.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "updated: %s\n", t.UpdatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "entries: %d\n", len(t.Entries))
		sb.WriteString("generator: portana\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(title(t)))

	for i, entry := range t.Entries {
		label := roleLabel(entry.Role)
		if e.options.IncludeTimestamps && !entry.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(entry.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(entry.Content))
		sb.WriteString("\n\n")

		if extra := e.formatResponse(decodeResponse(entry)); extra != "" {
			sb.WriteString(extra)
			sb.WriteString("\n\n")
		}
		if entry.View != "" {
			fmt.Fprintf(&sb, "<sub>View: %s (offline)</sub>\n\n", entry.View)
		}
		if len(entry.Sources) > 0 {
			sb.WriteString(formatSources(entry.Sources))
			sb.WriteString("\n")
		}

		if i < len(t.Entries)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatResponse renders the parts of a typed reply that are not its body.
func (e *MarkdownExporter) formatResponse(r response.Response) string {
	var parts []string
	switch v := r.(type) {
	case *response.TextResponse:
		parts = append(parts, formatCitations(v.Citations))
	case *response.HybridResponse:
		parts = append(parts, formatCitations(v.Citations))
		if cmd, ok := v.Suggestion(); ok {
			parts = append(parts, fmt.Sprintf("> Suggested: `/%s`", cmd))
		}
	case *response.CommandResponse:
		if v.HasData() {
			var buf bytes.Buffer
			if err := json.Indent(&buf, v.Data, "", "  "); err != nil {
				buf.Reset()
				buf.Write(v.Data)
			}
			parts = append(parts, fmt.Sprintf("**/%s**\n\n```json\n%s\n```", v.Command, buf.String()))
		}
	}

	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

func formatCitations(cs []response.Citation) string {
	if len(cs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("**Citations**\n\n")
	for _, c := range cs {
		if c.Snippet != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", escapeMarkdown(c.Source), c.Snippet)
		} else {
			fmt.Fprintf(&sb, "- %s\n", escapeMarkdown(c.Source))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSources(srcs []storage.StoredSource) string {
	var sb strings.Builder
	sb.WriteString("**Sources**\n\n")
	for _, s := range srcs {
		name := escapeMarkdown(s.Title)
		if s.URL != "" {
			name = fmt.Sprintf("[%s](%s)", name, s.URL)
		}
		if s.Type != "" {
			fmt.Fprintf(&sb, "- %s <sub>%s</sub>\n", name, s.Type)
		} else {
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a frontmatter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
