// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/ui/styles"
	"github.com/portana/portana-tui/internal/util"
)

// DefaultWidth is used when no width is known.
const DefaultWidth = 80

// Options configures New.
type Options struct {
	Theme    *styles.Theme
	Registry *commands.Registry

	// Width is the wrap width in columns (0 = DefaultWidth).
	Width int

	// WrapLimit caps Width when positive. Terminal resizes never widen
	// output past it.
	WrapLimit int

	// Markdown renders assistant text with glamour.
	Markdown bool

	// Timestamps adds the entry time next to the role label.
	Timestamps bool

	// SuggestionKey is shown next to a suggested command, e.g. "ctrl+s".
	SuggestionKey string
}

// Renderer formats entries. Safe for concurrent use.
type Renderer struct {
	theme         *styles.Theme
	registry      *commands.Registry
	timestamps    bool
	suggestionKey string

	mu       sync.Mutex
	width    int
	limit    int
	markdown bool
	md       *glamour.TermRenderer
}

// New returns a Renderer. A nil Theme means PlainTheme.
func New(opts Options) *Renderer {
	if opts.Theme == nil {
		opts.Theme = styles.PlainTheme()
	}
	if opts.Registry == nil {
		opts.Registry = commands.DefaultRegistry()
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	return &Renderer{
		theme:         opts.Theme,
		registry:      opts.Registry,
		markdown:      opts.Markdown,
		timestamps:    opts.Timestamps,
		suggestionKey: opts.SuggestionKey,
		width:         opts.Width,
		limit:         max(opts.WrapLimit, 0),
	}
}

// Theme returns the theme in use.
func (r *Renderer) Theme() *styles.Theme { return r.theme }

// Width returns the wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wrapWidth()
}

// SetWidth changes the wrap width. The markdown renderer is rebuilt lazily.
func (r *Renderer) SetWidth(w int) {
	if w <= 0 {
		w = DefaultWidth
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resize(func() { r.width = w })
}

// SetWrapLimit caps the wrap width; 0 removes the cap.
func (r *Renderer) SetWrapLimit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resize(func() { r.limit = max(n, 0) })
}

// resize applies fn and drops the markdown renderer if the effective width
// moved. Callers hold mu.
func (r *Renderer) resize(fn func()) {
	before := r.wrapWidth()
	fn()
	if r.wrapWidth() != before {
		r.md = nil
	}
}

func (r *Renderer) wrapWidth() int {
	if r.limit > 0 {
		return min(r.width, r.limit)
	}
	return r.width
}

// =============================================================================
// ENTRIES
// =============================================================================

// Entries renders a whole conversation separated by blank lines.
func (r *Renderer) Entries(entries []model.Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, r.Entry(e))
	}
	return strings.Join(parts, "\n\n")
}

// Entry renders one entry: a label line followed by the body.
func (r *Renderer) Entry(e model.Entry) string {
	t := r.theme

	label := t.AssistantLabel.Render(e.Role.DisplayName())
	if e.Role == model.RoleUser {
		label = t.UserLabel.Render(e.Role.DisplayName())
	}
	if r.timestamps && !e.Timestamp.IsZero() {
		label += " " + t.Timestamp.Render(e.Timestamp.Format("15:04"))
	}

	var body string
	switch {
	case e.Role == model.RoleUser:
		body = r.wrap(t.Body, e.Content)
	case e.Tone == model.ToneWarning:
		body = r.wrap(t.Warning, e.Content)
	case e.Tone == model.ToneError:
		body = r.wrap(t.Error, e.Content)
	case e.Response != nil:
		body = r.Response(e.Response)
	default:
		body = r.Text(e.Content)
	}

	if e.IsStreaming {
		body += t.Cursor.Render("▌")
	}
	if e.View != "" {
		body += "\n" + t.SourceMeta.Render(fmt.Sprintf("[%s: offline]", e.View))
	}
	if len(e.Sources) > 0 {
		body += "\n" + r.Sources(e.Sources)
	}
	return label + "\n" + body
}

// =============================================================================
// RESPONSES
// =============================================================================

// Response renders a typed reply.
func (r *Renderer) Response(resp response.Response) string {
	switch v := resp.(type) {
	case *response.TextResponse:
		return r.withCitations(r.Text(v.Content), v.Citations)

	case *response.HybridResponse:
		out := r.withCitations(r.Text(v.Content), v.Citations)
		if name, ok := v.Suggestion(); ok {
			out += "\n" + r.Suggestion(name)
		}
		return out

	case *response.CommandResponse:
		var parts []string
		if v.Content != "" {
			parts = append(parts, r.Text(v.Content))
		}
		if view, ok := DecodeCommandView(v.Command, v.Data); ok {
			parts = append(parts, view.Render(r.theme, r.Width()))
		} else if v.HasData() {
			parts = append(parts, highlightJSON(v.Data, r.theme))
		}
		if len(parts) == 0 {
			return r.theme.SourceMeta.Render(fmt.Sprintf("Data received for: /%s", v.Command))
		}
		return strings.Join(parts, "\n\n")
	}
	return ""
}

// Suggestion renders the call to action for a suggested command.
func (r *Renderer) Suggestion(name string) string {
	t := r.theme
	info := commands.SuggestionLabel(name, r.registry)
	line := t.Suggestion.Render(commands.Prefix+name) + " " + t.SourceMeta.Render(info.Label)
	if info.Description != "" && info.Description != info.Label {
		line += t.SourceMeta.Render(": " + info.Description)
	}
	if r.suggestionKey != "" {
		line += "  " + t.SuggestionKey.Render("["+r.suggestionKey+"]")
	}
	return "→ " + line
}

func (r *Renderer) withCitations(body string, cites []response.Citation) string {
	if len(cites) == 0 {
		return body
	}
	t := r.theme
	lines := []string{body, t.SectionTitle.Render("Citations")}
	for i, c := range cites {
		line := fmt.Sprintf("[%d] %s", i+1, c.Source)
		if c.Snippet != "" {
			line += ": " + util.Truncate(c.Snippet, max(r.Width()-util.Width(line)-2, 10))
		}
		lines = append(lines, t.Citation.Render(line))
	}
	return strings.Join(lines, "\n")
}

// Sources renders the retrieval sources of a streamed answer.
func (r *Renderer) Sources(sources []model.Source) string {
	t := r.theme
	lines := []string{t.SectionTitle.Render("Sources")}
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = s.ID
		}
		line := "• " + t.SourceTitle.Render(title)
		var meta []string
		if s.Type != "" {
			meta = append(meta, s.Type)
		}
		if s.RelevanceScore > 0 {
			meta = append(meta, fmt.Sprintf("%.0f%%", s.RelevanceScore*100))
		}
		if len(meta) > 0 {
			line += " " + t.SourceMeta.Render("("+strings.Join(meta, ", ")+")")
		}
		if s.URL != "" {
			line += "\n  " + t.SourceMeta.Render(s.URL)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Markdown reports whether assistant text goes through glamour.
func (r *Renderer) Markdown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markdown
}

// SetMarkdown toggles glamour rendering for assistant text.
func (r *Renderer) SetMarkdown(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markdown = on
}

// =============================================================================
// TEXT
// =============================================================================

// Text renders assistant prose, as markdown when enabled.
func (r *Renderer) Text(s string) string {
	if s == "" {
		return ""
	}
	if r.Markdown() {
		if md := r.markdownRenderer(); md != nil {
			if out, err := md.Render(s); err == nil {
				return strings.Trim(out, "\n")
			}
		}
	}
	return r.wrap(r.theme.Body, s)
}

func (r *Renderer) wrap(style lipgloss.Style, s string) string {
	return style.Render(wordwrap.String(s, r.Width()))
}

func (r *Renderer) markdownRenderer() *glamour.TermRenderer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.md != nil {
		return r.md
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.theme.GlamourStyle()),
		glamour.WithWordWrap(r.wrapWidth()),
	)
	if err != nil {
		return nil
	}
	r.md = md
	return md
}
