// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/portana/portana-tui/internal/ui/styles"
)

// =============================================================================
// COMMAND PAYLOAD SHAPES
// =============================================================================

// Project is one entry of the /projects payload.
type Project struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	URL         string   `json:"url"`
}

// StackCategory groups tools in the /stack payload.
type StackCategory struct {
	Name  string   `json:"name"`
	Tools []string `json:"tools"`
}

// Experience is one role in the /experience payload.
type Experience struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Duration     string   `json:"duration"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// Education is one entry of the education payload.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Field       string `json:"field"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// TimelineItem is one point on the /timeline payload.
type TimelineItem struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

// Achievement is one award or recognition.
type Achievement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Issuer      string `json:"issuer"`
}

// CommandView is a typed rendering of a command payload.
type CommandView interface {
	Render(t *styles.Theme, width int) string
	Len() int
}

type (
	ProjectsView     []Project
	StackView        []StackCategory
	ExperienceView   []Experience
	EducationView    []Education
	TimelineView     []TimelineItem
	AchievementsView []Achievement
	SummaryView      map[string]json.RawMessage
)

// DecodeCommandView picks the typed view for command. List payloads must be
// JSON arrays; elements that do not match the shape are skipped. ok is false
// for unknown commands and for payloads with nothing to show.
func DecodeCommandView(command string, data json.RawMessage) (CommandView, bool) {
	var view CommandView
	switch command {
	case "projects":
		view = ProjectsView(decodeList[Project](data))
	case "stack":
		view = StackView(decodeList[StackCategory](data))
	case "experience":
		view = ExperienceView(decodeList[Experience](data))
	case "education":
		view = EducationView(decodeList[Education](data))
	case "timeline":
		view = TimelineView(decodeList[TimelineItem](data))
	case "achievements":
		view = AchievementsView(decodeList[Achievement](data))
	case "summary":
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		view = SummaryView(m)
	default:
		return nil, false
	}
	if view.Len() == 0 {
		return nil, false
	}
	return view, true
}

func decodeList[T any](data json.RawMessage) []T {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// VIEW RENDERING
// =============================================================================

func (v ProjectsView) Len() int     { return len(v) }
func (v StackView) Len() int        { return len(v) }
func (v ExperienceView) Len() int   { return len(v) }
func (v EducationView) Len() int    { return len(v) }
func (v TimelineView) Len() int     { return len(v) }
func (v AchievementsView) Len() int { return len(v) }
func (v SummaryView) Len() int      { return len(v) }

func (v ProjectsView) Render(t *styles.Theme, width int) string {
	cards := make([]string, 0, len(v))
	for _, p := range v {
		lines := []string{t.ViewTitle.Render(p.Title)}
		if p.Subtitle != "" {
			lines = append(lines, t.ViewSubtitle.Render(p.Subtitle))
		}
		if p.Description != "" {
			lines = append(lines, t.ViewText.Render(wrapText(p.Description, width-4)))
		}
		if tags := renderTags(t, p.Tags); tags != "" {
			lines = append(lines, tags)
		}
		if p.URL != "" {
			lines = append(lines, t.SourceMeta.Render(p.URL))
		}
		cards = append(cards, card(t, lines))
	}
	return strings.Join(cards, "\n")
}

func (v StackView) Render(t *styles.Theme, width int) string {
	blocks := make([]string, 0, len(v))
	for _, c := range v {
		blocks = append(blocks, t.ViewSubtitle.Bold(true).Render(c.Name)+"\n"+wrapText(renderTags(t, c.Tools), width))
	}
	return strings.Join(blocks, "\n\n")
}

func (v ExperienceView) Render(t *styles.Theme, width int) string {
	cards := make([]string, 0, len(v))
	for _, e := range v {
		lines := []string{t.ViewTitle.Render(e.Title)}
		if e.Company != "" {
			lines = append(lines, t.ViewSubtitle.Render(e.Company))
		}
		if e.Duration != "" {
			lines = append(lines, t.ViewText.Render(e.Duration))
		}
		if e.Description != "" {
			lines = append(lines, t.ViewText.Render(wrapText(e.Description, width-4)))
		}
		if tags := renderTags(t, e.Technologies); tags != "" {
			lines = append(lines, tags)
		}
		cards = append(cards, card(t, lines))
	}
	return strings.Join(cards, "\n")
}

func (v EducationView) Render(t *styles.Theme, width int) string {
	cards := make([]string, 0, len(v))
	for _, e := range v {
		title := e.Degree
		if e.Field != "" {
			title = strings.TrimSpace(title + " in " + e.Field)
		}
		lines := []string{t.ViewTitle.Render(title)}
		if e.Institution != "" {
			lines = append(lines, t.ViewSubtitle.Render(e.Institution))
		}
		if e.Duration != "" {
			lines = append(lines, t.ViewText.Render(e.Duration))
		}
		if e.Description != "" {
			lines = append(lines, t.ViewText.Render(wrapText(e.Description, width-4)))
		}
		cards = append(cards, card(t, lines))
	}
	return strings.Join(cards, "\n")
}

func (v TimelineView) Render(t *styles.Theme, width int) string {
	var b strings.Builder
	for i, item := range v {
		rail := "│"
		if i == len(v)-1 {
			rail = " "
		}
		b.WriteString(t.ViewDate.Render("● " + item.Date))
		b.WriteString("\n")
		body := []string{t.ViewTitle.Render(item.Title)}
		if item.Subtitle != "" {
			body = append(body, t.ViewText.Render(item.Subtitle))
		}
		if item.Description != "" {
			body = append(body, t.ViewText.Render(wrapText(item.Description, width-4)))
		}
		for _, line := range strings.Split(strings.Join(body, "\n"), "\n") {
			b.WriteString(t.ViewDate.Render(rail) + "  " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v AchievementsView) Render(t *styles.Theme, width int) string {
	lines := make([]string, 0, len(v))
	for _, a := range v {
		line := "★ " + t.ViewTitle.Render(a.Title)
		var meta []string
		if a.Issuer != "" {
			meta = append(meta, a.Issuer)
		}
		if a.Date != "" {
			meta = append(meta, a.Date)
		}
		if len(meta) > 0 {
			line += " " + t.ViewText.Render("("+strings.Join(meta, ", ")+")")
		}
		if a.Description != "" {
			line += "\n  " + t.ViewText.Render(wrapText(a.Description, width-2))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Render lists scalar fields as "key: value" in key order. Nested values are
// shown as compact JSON.
func (v SummaryView) Render(t *styles.Theme, width int) string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, t.ViewSubtitle.Render(k+":")+" "+t.ViewText.Render(wrapText(scalar(v[k]), width-len(k)-2)))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELPERS
// =============================================================================

func card(t *styles.Theme, lines []string) string {
	return t.Card.Render(strings.Join(lines, "\n"))
}

func renderTags(t *styles.Theme, tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, t.Tag.Render(tag))
		}
	}
	return strings.Join(out, " ")
}

func wrapText(s string, width int) string {
	if width < 20 {
		width = 20
	}
	return wordwrap.String(s, width)
}

func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
