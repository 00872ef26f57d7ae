// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/dispatch"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/render"
	"github.com/portana/portana-tui/internal/ui/components"
	"github.com/portana/portana-tui/internal/ui/styles"
)

// HealthInterval is how often the backend is probed while the screen is up.
const HealthInterval = 30 * time.Second

// noticeTTL is how long a status bar notice stays up.
const noticeTTL = 4 * time.Second

// maxHistory caps the input history.
const maxHistory = 100

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures New. Dispatcher is required.
type Options struct {
	Dispatcher *dispatch.Dispatcher
	Renderer   *render.Renderer
	Theme      *styles.Theme

	// BaseURL is shown in the status bar.
	BaseURL string

	// Streaming is shown as the mode in the status bar.
	Streaming bool

	// Greeting appends the welcome entry when the log is empty.
	Greeting bool

	// Health probes the backend. Nil leaves the status at "connecting".
	Health func(ctx context.Context) (time.Duration, error)

	// Save persists the transcript and returns where it went. Nil disables
	// the save key.
	Save func() (string, error)

	Keys   *KeyMap
	Logger *log.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	dispatcher *dispatch.Dispatcher
	log        *model.Log
	registry   *commands.Registry
	renderer   *render.Renderer
	theme      *styles.Theme
	keys       KeyMap
	logger     *log.Logger

	health func(ctx context.Context) (time.Duration, error)
	save   func() (string, error)

	// Dimensions
	width  int
	height int

	// Components
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	help      help.Model
	header    *components.Header
	statusBar *components.StatusBar
	popup     *components.CompletionPopup

	// Log observation. changed holds at most one pending signal.
	changed     chan struct{}
	unsubscribe func()

	// Turn in flight
	busy   bool
	cancel context.CancelFunc

	// conn is the last probed backend state, restored after a turn.
	conn components.Status

	// cycling is set while tab walks the popup; typing ends it.
	cycling bool

	// suggestion is the command offered by the latest assistant entry.
	suggestion string

	// Input history, oldest first. histIdx == len(history) means "editing".
	history []string
	histIdx int
	draft   string

	showHelp bool
	noticeID int
}

// New creates the chat model and subscribes it to the dispatcher's log.
func New(opts Options) Model {
	if opts.Dispatcher == nil {
		panic("chat: Dispatcher is required")
	}
	if opts.Theme == nil {
		opts.Theme = styles.PlainTheme()
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	d := opts.Dispatcher
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.Options{
			Theme:         opts.Theme,
			Registry:      d.Registry(),
			SuggestionKey: keys.RunSuggestion.Help().Key,
		})
	}

	input := textinput.New()
	input.Placeholder = "Ask me anything, or type / for commands"
	input.Prompt = opts.Theme.InputPrompt.Render("› ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = opts.Theme.StatusBusy

	sb := components.NewStatusBar(opts.Theme)
	sb.Backend = opts.BaseURL
	sb.SessionID = d.Session().ID()
	sb.Streaming = opts.Streaming
	sb.Shortcuts = []components.Shortcut{
		{Key: keys.Complete.Help().Key, Desc: keys.Complete.Help().Desc},
		{Key: keys.RunSuggestion.Help().Key, Desc: "suggestion"},
		{Key: keys.Help.Help().Key, Desc: keys.Help.Help().Desc},
	}

	m := Model{
		dispatcher: d,
		log:        d.Log(),
		registry:   d.Registry(),
		renderer:   opts.Renderer,
		theme:      opts.Theme,
		keys:       keys,
		logger:     logging.Component(opts.Logger, "chat"),
		health:     opts.Health,
		save:       opts.Save,
		width:      80,
		height:     24,
		viewport:   viewport.New(80, 18),
		input:      input,
		spinner:    sp,
		help:       help.New(),
		header:     components.NewHeader(opts.Theme),
		statusBar:  sb,
		popup:      components.NewCompletionPopup(opts.Theme),
		changed:    make(chan struct{}, 1),
	}

	ch := m.changed
	m.unsubscribe = m.log.Subscribe(func(model.Event) {
		select {
		case ch <- struct{}{}:
		default:
		}
	})

	if opts.Greeting && m.log.Len() == 0 {
		m.log.Append(model.NewGreeting())
	}
	m.layout()
	m.refresh()
	return m
}

// Init starts the cursor blink, the log listener and the first health probe.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.waitForLog()}
	if m.health != nil {
		cmds = append(cmds, m.probeHealth())
	}
	return tea.Batch(cmds...)
}

// Close detaches the model from the log and cancels any turn in flight.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Input returns the current input text.
func (m Model) Input() string { return m.input.Value() }

// Busy reports whether a turn started by this model is in flight.
func (m Model) Busy() bool { return m.busy }

// Suggestion returns the command the latest answer suggests, if any.
func (m Model) Suggestion() string { return m.suggestion }

// Completions returns the commands shown in the completion popup.
func (m Model) Completions() []commands.Descriptor { return m.popup.Items() }

// Status returns the connection status shown in the status bar.
func (m Model) Status() components.Status { return m.statusBar.Status }

// =============================================================================
// COMMANDS
// =============================================================================

// waitForLog blocks until the log changes.
func (m Model) waitForLog() tea.Cmd {
	ch := m.changed
	return func() tea.Msg {
		<-ch
		return logChangedMsg{}
	}
}

func (m Model) probeHealth() tea.Cmd {
	probe := m.health
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		latency, err := probe(ctx)
		return healthMsg{Latency: latency, Err: err}
	}
}

func scheduleHealth() tea.Cmd {
	return tea.Tick(HealthInterval, func(time.Time) tea.Msg { return healthTickMsg{} })
}

// runTurn hands fn to a goroutine and reports its outcome.
func runTurn(ctx context.Context, fn func(context.Context) (dispatch.Outcome, error)) tea.Cmd {
	return func() tea.Msg {
		out, err := fn(ctx)
		return turnDoneMsg{Outcome: out, Err: err}
	}
}

func (m Model) saveTranscript() tea.Cmd {
	save := m.save
	return func() tea.Msg {
		path, err := save()
		return savedMsg{Path: path, Err: err}
	}
}

// notice shows a transient status bar message.
func (m *Model) notice(text string) tea.Cmd {
	m.noticeID++
	id := m.noticeID
	m.statusBar.Message = text
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{ID: id} })
}
