// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark  bool
	Profile termenv.Profile

	renderer *lipgloss.Renderer

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header         lipgloss.Style
	HeaderBrand    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	StatusOnline   lipgloss.Style
	StatusOffline  lipgloss.Style
	StatusBusy     lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style

	// ==========================================================================
	// CONVERSATION ENTRIES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style
	Warning        lipgloss.Style
	Error          lipgloss.Style
	Cursor         lipgloss.Style

	// ==========================================================================
	// CITATIONS, SOURCES AND SUGGESTIONS
	// ==========================================================================

	SectionTitle  lipgloss.Style
	Citation      lipgloss.Style
	SourceTitle   lipgloss.Style
	SourceMeta    lipgloss.Style
	Suggestion    lipgloss.Style
	SuggestionKey lipgloss.Style

	// ==========================================================================
	// COMMAND VIEWS
	// ==========================================================================

	ViewTitle    lipgloss.Style
	ViewSubtitle lipgloss.Style
	ViewText     lipgloss.Style
	ViewDate     lipgloss.Style
	Tag          lipgloss.Style
	Card         lipgloss.Style

	// ==========================================================================
	// INPUT AND COMPLETION
	// ==========================================================================

	InputPrompt        lipgloss.Style
	InputBox           lipgloss.Style
	Completion         lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style
}

// NewTheme builds a theme rendering to out. mode is "dark", "light" or
// "auto"; auto asks the terminal for its background color.
func NewTheme(mode string, out io.Writer) *Theme {
	r := lipgloss.NewRenderer(out)
	dark := r.HasDarkBackground()
	switch strings.ToLower(mode) {
	case "dark":
		dark = true
	case "light":
		dark = false
	}
	r.SetHasDarkBackground(dark)
	return build(r, dark)
}

// PlainTheme renders without any escape codes.
func PlainTheme() *Theme {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	r.SetHasDarkBackground(true)
	return build(r, true)
}

// Renderer returns the lipgloss renderer styles are bound to.
func (t *Theme) Renderer() *lipgloss.Renderer { return t.renderer }

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	switch {
	case t.Profile == termenv.Ascii:
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// IsPlain reports whether styles render as plain text.
func (t *Theme) IsPlain() bool { return t.Profile == termenv.Ascii }

func build(r *lipgloss.Renderer, dark bool) *Theme {
	s := r.NewStyle
	t := &Theme{IsDark: dark, Profile: r.ColorProfile(), renderer: r}

	t.Header = s().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(Border)
	t.HeaderBrand = s().Bold(true).Foreground(Neon)
	t.HeaderSubtitle = s().Foreground(TextMuted)
	t.StatusBar = s().Padding(0, 1).Foreground(TextMuted)
	t.StatusOnline = s().Foreground(Emerald)
	t.StatusOffline = s().Foreground(Rose)
	t.StatusBusy = s().Foreground(Neon)
	t.ShortcutKey = s().Bold(true).Foreground(TextPrimary)
	t.ShortcutDesc = s().Foreground(TextMuted)

	t.UserLabel = s().Bold(true).Foreground(Violet)
	t.AssistantLabel = s().Bold(true).Foreground(Neon)
	t.Timestamp = s().Foreground(TextMuted)
	t.Body = s().Foreground(TextPrimary)
	t.Warning = s().Foreground(Amber)
	t.Error = s().Foreground(Rose)
	t.Cursor = s().Foreground(Neon).Blink(true)

	t.SectionTitle = s().Bold(true).Foreground(TextMuted)
	t.Citation = s().Foreground(TextMuted).Italic(true)
	t.SourceTitle = s().Foreground(Neon)
	t.SourceMeta = s().Foreground(TextMuted)
	t.Suggestion = s().Foreground(Neon).Underline(true)
	t.SuggestionKey = s().Bold(true).Foreground(Amber)

	t.ViewTitle = s().Bold(true).Foreground(TextPrimary)
	t.ViewSubtitle = s().Foreground(Neon)
	t.ViewText = s().Foreground(TextMuted)
	t.ViewDate = s().Bold(true).Foreground(Neon)
	t.Tag = s().Foreground(Neon).Background(NeonDeep).Padding(0, 1)
	t.Card = s().Border(lipgloss.RoundedBorder()).BorderForeground(Border).Padding(0, 1)

	t.InputPrompt = s().Bold(true).Foreground(Neon)
	t.InputBox = s().Border(lipgloss.RoundedBorder()).BorderForeground(Neon).Padding(0, 1)
	t.Completion = s().Foreground(TextPrimary)
	t.CompletionSelected = s().Bold(true).Foreground(Neon)
	t.CompletionDesc = s().Foreground(TextMuted)

	return t
}
