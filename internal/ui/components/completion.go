// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/ui/styles"
	"github.com/portana/portana-tui/internal/util"
)

// =============================================================================
// COMPLETION POPUP COMPONENT
// =============================================================================

// CompletionPopup lists command completions above the input.
type CompletionPopup struct {
	items      []commands.Descriptor
	selected   int
	maxVisible int
	width      int
	theme      *styles.Theme
}

// NewCompletionPopup creates a new completion popup.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 6,
		width:      50,
		theme:      theme,
	}
}

// SetItems replaces the completions and resets the selection.
func (c *CompletionPopup) SetItems(items []commands.Descriptor) {
	c.items = items
	c.selected = 0
}

// Items returns the current completions.
func (c *CompletionPopup) Items() []commands.Descriptor { return c.items }

// SetSelected sets the selected index. Out of range values are ignored.
func (c *CompletionPopup) SetSelected(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.selected = index
}

// Selected returns the selected index.
func (c *CompletionPopup) Selected() int { return c.selected }

// Next selects the next completion, wrapping around.
func (c *CompletionPopup) Next() {
	if len(c.items) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.items)
}

// Prev selects the previous completion, wrapping around.
func (c *CompletionPopup) Prev() {
	if len(c.items) == 0 {
		return
	}
	c.selected--
	if c.selected < 0 {
		c.selected = len(c.items) - 1
	}
}

// Current returns the selected completion.
func (c *CompletionPopup) Current() (commands.Descriptor, bool) {
	if c.selected < 0 || c.selected >= len(c.items) {
		return commands.Descriptor{}, false
	}
	return c.items[c.selected], true
}

// Visible reports whether there is anything to show.
func (c *CompletionPopup) Visible() bool { return len(c.items) > 0 }

// Clear removes all completions.
func (c *CompletionPopup) Clear() {
	c.items = nil
	c.selected = 0
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) { c.width = width }

// SetMaxVisible sets how many rows are shown at once.
func (c *CompletionPopup) SetMaxVisible(n int) {
	if n > 0 {
		c.maxVisible = n
	}
}

// View renders the popup, scrolling to keep the selection visible.
func (c *CompletionPopup) View() string {
	if len(c.items) == 0 {
		return ""
	}

	start, end := 0, len(c.items)
	if len(c.items) > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.items) {
			end = len(c.items)
			start = end - c.maxVisible
		}
	}

	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		rows = append(rows, c.renderItem(c.items[i], i == c.selected))
	}
	if hidden := len(c.items) - (end - start); hidden > 0 {
		rows = append(rows, c.theme.CompletionDesc.Render(fmt.Sprintf("  … %d more", hidden)))
	}

	return c.theme.InputBox.Width(c.width).Render(strings.Join(rows, "\n"))
}

func (c *CompletionPopup) renderItem(d commands.Descriptor, selected bool) string {
	const nameWidth = 14
	indicator := "  "
	nameStyle := c.theme.Completion
	if selected {
		indicator = "> "
		nameStyle = c.theme.CompletionSelected
	}

	name := util.PadRight(util.Truncate(d.Command, nameWidth), nameWidth)
	descWidth := c.width - nameWidth - 8
	desc := d.Description
	if descWidth > 0 {
		desc = util.Truncate(desc, descWidth)
	} else {
		desc = ""
	}
	return indicator + nameStyle.Render(name) + " " + c.theme.CompletionDesc.Render(desc)
}
