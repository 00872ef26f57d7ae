// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/portana/portana-tui/internal/ui/styles"
)

// Header is the title line of the chat screen.
type Header struct {
	Title    string
	Subtitle string
	Width    int

	theme *styles.Theme
}

// NewHeader creates a header with the product name.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title:    "Portana",
		Subtitle: "AI portfolio assistant",
		Width:    80,
		theme:    theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) { h.Width = width }

// View renders the header. The subtitle is dropped on narrow terminals.
func (h *Header) View() string {
	t := h.theme
	line := t.HeaderBrand.Render(h.Title)
	if h.Subtitle != "" && h.Width >= 40 {
		line += "  " + t.HeaderSubtitle.Render(h.Subtitle)
	}
	return t.Header.Width(h.Width).Render(line)
}
