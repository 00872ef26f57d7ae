// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/portana/portana-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES FOR CLI OUTPUT
// =============================================================================

// The one-shot commands reuse the chat screen's palette.
var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Neon)

	// LabelStyle pads field labels into a column.
	LabelStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Width(18)
	ValueStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald)
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)

	DimStyle     = lipgloss.NewStyle().Foreground(styles.TextMuted).Faint(true)
	CommandStyle = lipgloss.NewStyle().Foreground(styles.Violet)
)

// field renders a "label value" row.
func field(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}
