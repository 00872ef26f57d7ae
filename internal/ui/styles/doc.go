// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the portana TUI.
//
// Colors are lipgloss AdaptiveColors in the terminal-neon palette of the
// portfolio site. A Theme binds them to a lipgloss Renderer so the light or
// dark variant can be forced from config instead of relying on background
// detection.
//
// # Usage
//
//	theme := styles.NewTheme("auto", os.Stdout)
//	fmt.Println(theme.AssistantLabel.Render("Portana"))
//
// Tests and piped output use PlainTheme, which emits no escape codes.
package styles
