// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/portana/portana-tui/internal/commands"
)

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completable reports whether v is a bare command prefix.
func completable(v string) bool {
	return strings.HasPrefix(v, commands.Prefix) && !strings.ContainsAny(v, " \t")
}

// updateCompletions refilters the popup after the input changed.
func (m *Model) updateCompletions() {
	m.cycling = false
	v := m.input.Value()
	if !completable(v) {
		m.popup.Clear()
		return
	}
	items := m.registry.Complete(v)
	if len(items) == 1 && strings.EqualFold(items[0].Command, v) {
		m.popup.Clear()
		return
	}
	m.popup.SetItems(items)
}

// complete handles tab and shift+tab. The first press extends the input to
// the longest shared prefix; once nothing more is shared, presses cycle
// through the candidates.
func (m *Model) complete(forward bool) {
	v := m.input.Value()
	if !completable(v) {
		return
	}

	if m.cycling {
		if forward {
			m.popup.Next()
		} else {
			m.popup.Prev()
		}
		if d, ok := m.popup.Current(); ok {
			m.setInput(d.Command)
		}
		return
	}

	items := m.registry.Complete(v)
	switch len(items) {
	case 0:
		return
	case 1:
		m.setInput(items[0].Command)
		m.popup.Clear()
		return
	}

	m.popup.SetItems(items)
	if prefix := commands.CommonPrefix(items); len(prefix) > len(v) {
		m.setInput(prefix)
		return
	}

	m.cycling = true
	if !forward {
		m.popup.SetSelected(len(items) - 1)
	}
	if d, ok := m.popup.Current(); ok {
		m.setInput(d.Command)
	}
}

func (m *Model) setInput(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}
