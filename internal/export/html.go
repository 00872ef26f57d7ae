// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a self-contained HTML page.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

var (
	codeBlockRegex  = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRegex = regexp.MustCompile("`([^`\n]+)`")
)

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *storage.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(title(t)))
	sb.WriteString("  <meta name=\"generator\" content=\"portana\">\n")
	fmt.Fprintf(&sb, "  <meta name=\"date\" content=\"%s\">\n", t.CreatedAt.Format(time.RFC3339))
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t))
	}

	sb.WriteString("<main>\n")
	for _, entry := range t.Entries {
		sb.WriteString(e.renderEntry(entry))
	}
	sb.WriteString("</main>\n</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(t *storage.Transcript) string {
	var sb strings.Builder
	sb.WriteString("<header>\n")
	fmt.Fprintf(&sb, "  <h1>%s</h1>\n", html.EscapeString(title(t)))
	sb.WriteString("  <div class=\"meta\">")
	fmt.Fprintf(&sb, "<span><strong>Created:</strong> %s</span>", formatTimestamp(t.CreatedAt))
	fmt.Fprintf(&sb, "<span><strong>Entries:</strong> %d</span>", len(t.Entries))
	if t.BaseURL != "" {
		fmt.Fprintf(&sb, "<span><strong>Backend:</strong> %s</span>", html.EscapeString(t.BaseURL))
	}
	sb.WriteString("</div>\n</header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderEntry(entry storage.StoredEntry) string {
	role := entry.Role
	if role != "user" && role != "assistant" {
		role = "other"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<section class=\"entry %s\">\n", role)
	fmt.Fprintf(&sb, "  <div class=\"label\">%s", html.EscapeString(roleLabel(entry.Role)))
	if e.options.IncludeTimestamps && !entry.Timestamp.IsZero() {
		fmt.Fprintf(&sb, " <time>%s</time>", formatShortTimestamp(entry.Timestamp))
	}
	sb.WriteString("</div>\n")
	fmt.Fprintf(&sb, "  <div class=\"body\">%s</div>\n", formatContent(entry.Content))

	sb.WriteString(renderResponse(decodeResponse(entry)))

	if entry.View != "" {
		fmt.Fprintf(&sb, "  <div class=\"view\">View: %s (offline)</div>\n", html.EscapeString(entry.View))
	}
	if len(entry.Sources) > 0 {
		sb.WriteString("  <ul class=\"sources\">\n")
		for _, s := range entry.Sources {
			name := html.EscapeString(s.Title)
			if s.URL != "" && safeURL(s.URL) {
				name = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(s.URL), name)
			}
			fmt.Fprintf(&sb, "    <li>%s</li>\n", name)
		}
		sb.WriteString("  </ul>\n")
	}
	sb.WriteString("</section>\n")
	return sb.String()
}

func renderResponse(r response.Response) string {
	var sb strings.Builder
	var citations []response.Citation
	switch v := r.(type) {
	case *response.TextResponse:
		citations = v.Citations
	case *response.HybridResponse:
		citations = v.Citations
		if cmd, ok := v.Suggestion(); ok {
			fmt.Fprintf(&sb, "  <div class=\"suggestion\">Suggested: <code>/%s</code></div>\n", html.EscapeString(cmd))
		}
	case *response.CommandResponse:
		if v.HasData() {
			var buf bytes.Buffer
			if err := json.Indent(&buf, v.Data, "", "  "); err != nil {
				buf.Reset()
				buf.Write(v.Data)
			}
			fmt.Fprintf(&sb, "  <pre class=\"data\"><code>%s</code></pre>\n", html.EscapeString(buf.String()))
		}
	}
	if len(citations) > 0 {
		sb.WriteString("  <ul class=\"citations\">\n")
		for _, c := range citations {
			fmt.Fprintf(&sb, "    <li>%s", html.EscapeString(c.Source))
			if c.Snippet != "" {
				fmt.Fprintf(&sb, ": <em>%s</em>", html.EscapeString(c.Snippet))
			}
			sb.WriteString("</li>\n")
		}
		sb.WriteString("  </ul>\n")
	}
	return sb.String()
}

// formatContent escapes content and renders fenced and inline code.
func formatContent(content string) string {
	content = html.EscapeString(strings.TrimSpace(content))

	content = codeBlockRegex.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRegex.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}
		// Language names were escaped with the rest of the content above.
		return fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>", parts[1], strings.TrimSpace(parts[2]))
	})
	content = inlineCodeRegex.ReplaceAllString(content, "<code>$1</code>")

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		if strings.HasPrefix(para, "<pre>") {
			out = append(out, para)
			continue
		}
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>")+"</p>")
	}
	return strings.Join(out, "\n")
}

// safeURL allows only http(s) links in exported pages.
func safeURL(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `  <style>
    body { margin: 0; font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
    body.dark { background: #0d1117; color: #e6edf3; }
    body.light { background: #ffffff; color: #1f2328; }
    .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
    header h1 { margin-bottom: .25rem; }
    .meta span { margin-right: 1.5rem; font-size: .9rem; opacity: .75; }
    .entry { margin: 1.25rem 0; padding: 1rem 1.25rem; border-radius: 8px; border-left: 4px solid #7c3aed; }
    .dark .entry { background: #161b22; }
    .light .entry { background: #f6f8fa; }
    .entry.user { border-left-color: #22d3ee; }
    .label { font-weight: 600; margin-bottom: .5rem; }
    .label time { font-weight: 400; font-size: .8rem; opacity: .6; margin-left: .5rem; }
    pre { overflow-x: auto; padding: .75rem; border-radius: 6px; background: rgba(127,127,127,.15); }
    code { font-family: "JetBrains Mono", Consolas, monospace; font-size: .9em; }
    .citations, .sources { font-size: .85rem; opacity: .8; }
    .suggestion, .view { font-size: .85rem; color: #f59e0b; }
  </style>
`
