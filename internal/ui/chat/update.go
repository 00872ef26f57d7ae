// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/portana/portana-tui/internal/dispatch"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case logChangedMsg:
		m.refresh()
		return m, m.waitForLog()

	case turnDoneMsg:
		return m.handleTurnDone(msg)

	case healthMsg:
		if msg.Err != nil {
			m.conn = components.StatusOffline
			m.logger.Debug("health probe failed", "err", msg.Err)
		} else {
			m.conn = components.StatusOnline
			m.statusBar.Latency = msg.Latency
		}
		if !m.busy {
			m.statusBar.Status = m.conn
		}
		return m, scheduleHealth()

	case healthTickMsg:
		if m.health == nil {
			return m, nil
		}
		return m, m.probeHealth()

	case savedMsg:
		if msg.Err != nil {
			m.logger.Error("save transcript", "err", msg.Err)
			return m, m.notice("Save failed: " + msg.Err.Error())
		}
		return m, m.notice("Saved " + msg.Path)

	case clearNoticeMsg:
		if msg.ID == m.noticeID {
			m.statusBar.Message = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if msg.String() == "ctrl+c" && m.busy {
			m.cancel()
			return m, m.notice("Cancelled")
		}
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.popup.Visible() {
			m.popup.Clear()
			m.cycling = false
			m.layout()
			return m, nil
		}
		if m.busy {
			m.cancel()
			return m, m.notice("Cancelled")
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		m.complete(true)
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.CompletePrev):
		m.complete(false)
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.RunSuggestion):
		return m.runSuggestion()

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Save):
		if m.save == nil {
			return m, nil
		}
		return m, m.saveTranscript()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.HistoryPrev):
		if m.popup.Visible() {
			m.popup.Prev()
			return m, nil
		}
		m.historyPrev()
		return m, nil

	case key.Matches(msg, m.keys.HistoryNext):
		if m.popup.Visible() {
			m.popup.Next()
			return m, nil
		}
		m.historyNext()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.updateCompletions()
		m.layout()
	}
	return m, cmd
}

// submit sends the input line. While a turn is in flight the key does
// nothing and the input is kept.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy || m.dispatcher.Busy() {
		return m, m.notice("Still working on the last request")
	}

	line := m.input.Value()
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	m.pushHistory(line)
	m.input.Reset()
	m.popup.Clear()
	m.cycling = false
	m.layout()

	return m, m.startTurn(func(ctx context.Context) (dispatch.Outcome, error) {
		return m.dispatcher.Submit(ctx, line)
	})
}

func (m Model) runSuggestion() (tea.Model, tea.Cmd) {
	if m.suggestion == "" || m.busy {
		return m, nil
	}
	name := m.suggestion
	m.suggestion = ""
	return m, m.startTurn(func(ctx context.Context) (dispatch.Outcome, error) {
		return m.dispatcher.RunSuggestion(ctx, name)
	})
}

// startTurn marks the model busy and runs fn off the UI goroutine.
func (m *Model) startTurn(fn func(context.Context) (dispatch.Outcome, error)) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.busy = true
	m.cancel = cancel
	m.statusBar.Status = components.StatusBusy
	m.layout()
	return tea.Batch(runTurn(ctx, fn), m.spinner.Tick)
}

func (m Model) handleTurnDone(msg turnDoneMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.busy = false
	m.statusBar.Status = m.conn
	m.layout()
	m.refresh()

	if errors.Is(msg.Err, dispatch.ErrBusy) {
		return m, m.notice("Still working on the last request")
	}
	m.logger.Debug("turn done", "outcome", msg.Outcome)

	switch msg.Outcome {
	case dispatch.OutcomeFallback:
		m.conn = components.StatusOffline
		m.statusBar.Status = m.conn
		return m, m.notice("Backend unreachable, showing offline content")
	case dispatch.OutcomeFailed:
		return m, m.notice("Request failed")
	}
	return m, nil
}

// =============================================================================
// RENDERING STATE
// =============================================================================

// refresh re-renders the log into the viewport, following the tail when
// the user has not scrolled up.
func (m *Model) refresh() {
	entries := m.log.Entries()
	follow := m.viewport.AtBottom() || m.busy

	m.viewport.SetContent(m.renderer.Entries(entries))
	if follow {
		m.viewport.GotoBottom()
	}
	m.statusBar.Entries = len(entries)
	m.suggestion = latestSuggestion(entries)
}

// latestSuggestion returns the command offered by the final assistant
// entry, or "" when it offers none or is still streaming.
func latestSuggestion(entries []model.Entry) string {
	if len(entries) == 0 {
		return ""
	}
	last := entries[len(entries)-1]
	if last.Role != model.RoleAssistant || last.IsStreaming {
		return ""
	}
	h, ok := last.Response.(*response.HybridResponse)
	if !ok {
		return ""
	}
	name, _ := h.Suggestion()
	return name
}

// =============================================================================
// HISTORY
// =============================================================================

func (m *Model) pushHistory(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.histIdx = len(m.history)
	m.draft = ""
}

func (m *Model) historyPrev() {
	if m.histIdx == 0 {
		return
	}
	if m.histIdx == len(m.history) {
		m.draft = m.input.Value()
	}
	m.histIdx--
	m.setInput(m.history[m.histIdx])
}

func (m *Model) historyNext() {
	if m.histIdx >= len(m.history) {
		return
	}
	m.histIdx++
	if m.histIdx == len(m.history) {
		m.setInput(m.draft)
		return
	}
	m.setInput(m.history[m.histIdx])
}
