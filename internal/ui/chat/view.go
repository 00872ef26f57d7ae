// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m Model) View() string {
	parts := []string{m.header.View(), m.viewport.View()}
	if m.busy {
		parts = append(parts, m.busyLine())
	}
	if m.popup.Visible() {
		parts = append(parts, m.popup.View())
	}
	parts = append(parts, m.inputView())
	if m.showHelp {
		parts = append(parts, m.help.View(m.keys))
	}
	parts = append(parts, m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) busyLine() string {
	return m.spinner.View() + " " + m.theme.StatusBusy.Render("Portana is thinking") +
		m.theme.ShortcutDesc.Render("  esc to cancel")
}

func (m Model) inputView() string {
	return m.theme.InputBox.Width(max(m.width-2, 10)).Render(m.input.View())
}

// layout sizes the viewport to whatever the fixed rows leave over.
func (m *Model) layout() {
	w := max(m.width, 20)

	m.header.SetWidth(w)
	m.statusBar.SetWidth(w)
	m.popup.SetWidth(max(w-2, 10))
	m.help.Width = w
	m.input.Width = max(w-8, 10)
	m.renderer.SetWidth(max(w-2, 20))

	used := lipgloss.Height(m.header.View()) +
		lipgloss.Height(m.inputView()) +
		lipgloss.Height(m.statusBar.View())
	if m.busy {
		used++
	}
	if m.popup.Visible() {
		used += lipgloss.Height(m.popup.View())
	}
	if m.showHelp {
		used += lipgloss.Height(m.help.View(m.keys))
	}

	m.viewport.Width = w
	m.viewport.Height = max(m.height-used, 1)
}
