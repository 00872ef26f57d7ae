// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/portana/portana-tui/internal/ui/styles"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the connection and activity state shown in the status bar.
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
	StatusBusy
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	case StatusBusy:
		return "thinking"
	default:
		return "connecting"
	}
}

// Icon returns a shape for the status so it reads without color.
func (s Status) Icon() string {
	switch s {
	case StatusOnline:
		return "●"
	case StatusOffline:
		return "○"
	case StatusBusy:
		return "◐"
	default:
		return "·"
	}
}

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Shortcut is a key hint shown on the right of the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line of the chat screen.
type StatusBar struct {
	Status    Status
	Backend   string
	SessionID string
	Streaming bool
	Entries   int
	Latency   time.Duration
	Message   string // transient notice, replaces the shortcuts
	Shortcuts []Shortcut
	Width     int

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) { s.Width = width }

// View renders the bar, dropping detail as the terminal narrows.
func (s *StatusBar) View() string {
	t := s.theme
	left := []string{s.renderStatus()}

	if s.Width >= 60 {
		if s.Backend != "" {
			left = append(left, t.ShortcutDesc.Render(strings.TrimPrefix(strings.TrimPrefix(s.Backend, "http://"), "https://")))
		}
		if s.SessionID != "" {
			left = append(left, t.ShortcutDesc.Render("session "+shortID(s.SessionID)))
		}
	}
	if s.Width >= 90 {
		mode := "message"
		if s.Streaming {
			mode = "stream"
		}
		left = append(left, t.ShortcutDesc.Render(mode))
		if s.Entries > 0 {
			left = append(left, t.ShortcutDesc.Render(fmt.Sprintf("%d entries", s.Entries)))
		}
	}

	leftStr := strings.Join(left, t.ShortcutDesc.Render(" | "))

	var right string
	if s.Message != "" {
		right = t.Warning.Render(s.Message)
	} else if s.Width >= 70 {
		right = s.renderShortcuts()
	}

	inner := s.Width - 2
	gap := inner - lipgloss.Width(leftStr) - lipgloss.Width(right)
	if gap < 1 {
		right = ""
		gap = 0
	}
	return t.StatusBar.Render(leftStr + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderStatus() string {
	t := s.theme
	style := t.ShortcutDesc
	switch s.Status {
	case StatusOnline:
		style = t.StatusOnline
	case StatusOffline:
		style = t.StatusOffline
	case StatusBusy:
		style = t.StatusBusy
	}
	label := s.Status.Icon() + " " + s.Status.String()
	if s.Status == StatusOnline && s.Latency > 0 {
		label += fmt.Sprintf(" %dms", s.Latency.Milliseconds())
	}
	return style.Render(label)
}

func (s *StatusBar) renderShortcuts() string {
	t := s.theme
	parts := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		parts = append(parts, t.ShortcutKey.Render(sc.Key)+" "+t.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
