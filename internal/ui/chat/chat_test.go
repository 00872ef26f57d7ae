// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/dispatch"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/ui/components"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubBackend struct {
	mu      sync.Mutex
	fetches []string
	sends   []string
	reply   string
	block   chan struct{}
}

func (s *stubBackend) hold(ctx context.Context) error {
	if s.block == nil {
		return nil
	}
	select {
	case <-s.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubBackend) FetchCommand(ctx context.Context, name string) (response.Response, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, name)
	s.mu.Unlock()
	if err := s.hold(ctx); err != nil {
		return nil, err
	}
	return &response.CommandResponse{Command: name, Content: "fetched " + name, Data: []byte("{}")}, nil
}

func (s *stubBackend) SendMessage(ctx context.Context, _, message string) (string, error) {
	s.mu.Lock()
	s.sends = append(s.sends, message)
	s.mu.Unlock()
	if err := s.hold(ctx); err != nil {
		return "", err
	}
	if s.reply != "" {
		return s.reply, nil
	}
	return `{"type":"text","content":"echo ` + message + `"}`, nil
}

func (s *stubBackend) StreamChat(context.Context, api.ChatQuery) (*api.Stream, error) {
	return nil, errors.New("not used")
}

func (s *stubBackend) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func newTestModel(t *testing.T, backend *stubBackend, greeting bool) Model {
	t.Helper()
	d := dispatch.New(dispatch.Options{Backend: backend, Log: model.NewLog()})
	m := New(Options{Dispatcher: d, Greeting: greeting, BaseURL: "http://localhost:3000"})
	t.Cleanup(m.Close)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func press(t *testing.T, m Model, k tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: k})
}

// finishTurn runs the commands returned by a submission and feeds the
// turn result back into the model.
func finishTurn(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	done, ok := findTurn(cmd)
	require.True(t, ok, "no turn result in command")
	m, _ = update(t, m, done)
	return m
}

func findTurn(cmd tea.Cmd) (turnDoneMsg, bool) {
	if cmd == nil {
		return turnDoneMsg{}, false
	}
	switch msg := cmd().(type) {
	case turnDoneMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if done, ok := findTurn(c); ok {
				return done, true
			}
		}
	}
	return turnDoneMsg{}, false
}

// =============================================================================
// CONSTRUCTION AND VIEW
// =============================================================================

func TestNew_Greeting(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, true)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Portana")
	assert.Contains(t, view, "portfolio assistant")
	assert.Contains(t, view, "localhost:3000")
	assert.LessOrEqual(t, lipgloss.Height(view), 30)
}

func TestNew_NoGreeting(t *testing.T) {
	backend := &stubBackend{}
	m := newTestModel(t, backend, false)
	assert.Equal(t, 0, m.log.Len())
}

func TestNew_RequiresDispatcher(t *testing.T) {
	assert.Panics(t, func() { New(Options{}) })
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_Command(t *testing.T) {
	backend := &stubBackend{}
	m := newTestModel(t, backend, false)

	m = typeText(t, m, "/about")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.True(t, m.Busy())
	assert.Empty(t, m.Input())

	m = finishTurn(t, m, cmd)
	assert.False(t, m.Busy())
	assert.Equal(t, []string{"about"}, backend.fetches)

	entries := m.log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Role)
	assert.Equal(t, "/about", entries[0].Content)
	assert.Contains(t, m.View(), "fetched about")
}

func TestSubmit_BlankIgnored(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	m = typeText(t, m, "   ")
	m, cmd := press(t, m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.Busy())
}

func TestSubmit_WhileBusyIsNoop(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	m := newTestModel(t, backend, false)

	m = typeText(t, m, "first")
	m, first := press(t, m, tea.KeyEnter)
	require.True(t, m.Busy())

	done := make(chan turnDoneMsg, 1)
	go func() {
		msg, _ := findTurn(first)
		done <- msg
	}()
	require.Eventually(t, func() bool { return backend.sendCount() == 1 }, time.Second, 5*time.Millisecond)

	m = typeText(t, m, "second")
	m, _ = press(t, m, tea.KeyEnter)
	assert.Equal(t, "second", m.Input(), "input is kept while busy")
	assert.Equal(t, 1, backend.sendCount())

	close(backend.block)
	m, _ = update(t, m, <-done)
	assert.False(t, m.Busy())
	assert.Equal(t, 1, backend.sendCount())
}

func TestCancel_InFlight(t *testing.T) {
	backend := &stubBackend{block: make(chan struct{})}
	m := newTestModel(t, backend, false)

	m = typeText(t, m, "hello")
	m, cmd := press(t, m, tea.KeyEnter)

	done := make(chan turnDoneMsg, 1)
	go func() {
		msg, _ := findTurn(cmd)
		done <- msg
	}()
	require.Eventually(t, func() bool { return backend.sendCount() == 1 }, time.Second, 5*time.Millisecond)

	m, _ = press(t, m, tea.KeyEsc)

	select {
	case msg := <-done:
		m, _ = update(t, m, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("turn did not stop after cancel")
	}
	assert.False(t, m.Busy())
	last, ok := m.log.Last()
	require.True(t, ok)
	assert.Equal(t, dispatch.ErrorText, last.Content)
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

func TestSuggestion_RunWithShortcut(t *testing.T) {
	backend := &stubBackend{
		reply: `{"type":"hybrid","content":"I built a few things.","suggestedCommand":"projects","showSuggestion":true}`,
	}
	m := newTestModel(t, backend, false)

	m = typeText(t, m, "what have you built?")
	m, cmd := press(t, m, tea.KeyEnter)
	m = finishTurn(t, m, cmd)
	assert.Equal(t, "projects", m.Suggestion())

	m, cmd = press(t, m, tea.KeyCtrlS)
	assert.Empty(t, m.Suggestion())
	m = finishTurn(t, m, cmd)

	assert.Equal(t, []string{"projects"}, backend.fetches)
	entries := m.log.Entries()
	require.Len(t, entries, 3, "suggestions add no user entry")
	assert.Equal(t, model.RoleAssistant, entries[2].Role)
}

func TestSuggestion_NoneIsNoop(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, true)
	m, cmd := press(t, m, tea.KeyCtrlS)
	assert.Nil(t, cmd)
	assert.False(t, m.Busy())
}

func TestLatestSuggestion(t *testing.T) {
	hybrid := model.NewResponseEntry(&response.HybridResponse{
		Content: "x", SuggestedCommand: "/stack", ShowSuggestion: true,
	})
	assert.Equal(t, "stack", latestSuggestion([]model.Entry{hybrid}))

	streaming := hybrid
	streaming.IsStreaming = true
	assert.Empty(t, latestSuggestion([]model.Entry{streaming}))

	assert.Empty(t, latestSuggestion([]model.Entry{hybrid, model.NewUserEntry("hi")}))
	assert.Empty(t, latestSuggestion(nil))
}

// =============================================================================
// COMPLETION
// =============================================================================

func TestCompletion_PrefixThenCycle(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)

	m = typeText(t, m, "/s")
	assert.Len(t, m.Completions(), 2)

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "/sta", m.Input())

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "/start", m.Input())
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "/stack", m.Input())
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "/start", m.Input())
	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, "/stack", m.Input())
}

func TestCompletion_SingleMatch(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	m = typeText(t, m, "/pro")
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "/projects", m.Input())
	assert.Empty(t, m.Completions())
}

func TestCompletion_IgnoresText(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	m = typeText(t, m, "hello")
	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, "hello", m.Input())
	assert.Empty(t, m.Completions())

	m = typeText(t, m, " /s")
	assert.Empty(t, m.Completions())
}

func TestCompletion_EscClosesPopup(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	m = typeText(t, m, "/")
	assert.NotEmpty(t, m.Completions())
	assert.Contains(t, m.View(), "/start")

	m, _ = press(t, m, tea.KeyEsc)
	assert.Empty(t, m.Completions())
	assert.Equal(t, "/", m.Input())
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	for _, line := range []string{"one", "two"} {
		m = typeText(t, m, line)
		var cmd tea.Cmd
		m, cmd = press(t, m, tea.KeyEnter)
		m = finishTurn(t, m, cmd)
	}

	m = typeText(t, m, "dra")
	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, "two", m.Input())
	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, "one", m.Input())
	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, "one", m.Input())
	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, "two", m.Input())
	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, "dra", m.Input())
}

// =============================================================================
// BACKGROUND MESSAGES
// =============================================================================

func TestLogEventsWakeTheModel(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	wait := m.waitForLog()

	m.log.Append(model.NewAssistantEntry("pushed from elsewhere"))
	msg := wait()
	require.IsType(t, logChangedMsg{}, msg)

	m, next := update(t, m, msg)
	assert.NotNil(t, next)
	assert.Contains(t, m.View(), "pushed from elsewhere")
}

func TestHealthStatus(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	assert.Equal(t, components.StatusUnknown, m.Status())

	m, cmd := update(t, m, healthMsg{Latency: 12 * time.Millisecond})
	assert.Equal(t, components.StatusOnline, m.Status())
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "12ms")

	m, _ = update(t, m, healthMsg{Err: errors.New("refused")})
	assert.Equal(t, components.StatusOffline, m.Status())
}

func TestSavedNotice(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	m, _ = update(t, m, savedMsg{Path: "/tmp/t.yaml"})
	assert.Contains(t, m.View(), "Saved /tmp/t.yaml")

	m, _ = update(t, m, clearNoticeMsg{ID: m.noticeID - 1})
	assert.Contains(t, m.View(), "Saved", "stale clear is ignored")

	m, _ = update(t, m, clearNoticeMsg{ID: m.noticeID})
	assert.False(t, strings.Contains(m.View(), "Saved"))
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, false)
	_, cmd := press(t, m, tea.KeyCtrlC)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
