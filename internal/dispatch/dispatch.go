// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
	"github.com/portana/portana-tui/internal/session"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// ErrorText is the single reply shown for any failed turn.
	ErrorText = "Sorry, I encountered an error. Please try again."

	// EmptyReplyText is shown when the backend answered with nothing usable.
	EmptyReplyText = "I couldn't process that request."
)

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("dispatcher busy")

// GatedText is the warning for a gated command that already ran.
func GatedText(name string) string {
	return fmt.Sprintf("You've already run /%s this session.", name)
}

// Outcome says how a submission resolved.
type Outcome int

const (
	// OutcomeIgnored means the input was blank; nothing was logged.
	OutcomeIgnored Outcome = iota
	// OutcomeResolved means the backend answered.
	OutcomeResolved
	// OutcomeGated means a gated command was refused without a backend call.
	OutcomeGated
	// OutcomeFallback means a known command was answered offline.
	OutcomeFallback
	// OutcomeUnrecognized means an unknown command the backend also rejected.
	OutcomeUnrecognized
	// OutcomeFailed means the generic error reply was logged.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeResolved:
		return "resolved"
	case OutcomeGated:
		return "gated"
	case OutcomeFallback:
		return "fallback"
	case OutcomeUnrecognized:
		return "unrecognized"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Backend is the subset of *api.Client the dispatcher needs.
type Backend interface {
	FetchCommand(ctx context.Context, name string) (response.Response, error)
	SendMessage(ctx context.Context, sessionID, message string) (string, error)
	StreamChat(ctx context.Context, q api.ChatQuery) (*api.Stream, error)
}

// Options configures New. Backend and Log are required.
type Options struct {
	Backend  Backend
	Log      *model.Log
	Session  *session.Context
	Registry *commands.Registry

	// Streaming sends natural language to the streaming ask endpoint
	// instead of the message endpoint.
	Streaming bool

	// Query is copied into every streaming request; Query.Query and
	// Query.SessionID are overwritten.
	Query api.ChatQuery

	Logger *log.Logger
}

// Dispatcher runs one turn at a time against a Backend.
type Dispatcher struct {
	backend  Backend
	log      *model.Log
	session  *session.Context
	registry *commands.Registry
	fallback *commands.StaticHandler
	query    api.ChatQuery
	logger   *log.Logger

	streaming atomic.Bool
	busy      atomic.Bool
}

// New returns a Dispatcher. Missing Session and Registry get in-memory and
// default values.
func New(opts Options) *Dispatcher {
	if opts.Backend == nil {
		panic("dispatch: Backend is required")
	}
	if opts.Log == nil {
		opts.Log = model.NewLog()
	}
	if opts.Session == nil {
		opts.Session = session.NewInMemory()
	}
	if opts.Registry == nil {
		opts.Registry = commands.DefaultRegistry()
	}
	d := &Dispatcher{
		backend:  opts.Backend,
		log:      opts.Log,
		session:  opts.Session,
		registry: opts.Registry,
		fallback: commands.NewStaticHandler(opts.Registry),
		query:    opts.Query,
		logger:   logging.Component(opts.Logger, "dispatch"),
	}
	d.streaming.Store(opts.Streaming)
	return d
}

// Log returns the conversation log the dispatcher writes to.
func (d *Dispatcher) Log() *model.Log { return d.log }

// Registry returns the command registry used for classification.
func (d *Dispatcher) Registry() *commands.Registry { return d.registry }

// Session returns the session context used for ids and gating.
func (d *Dispatcher) Session() *session.Context { return d.session }

// Streaming reports whether chat turns use the streaming endpoint.
func (d *Dispatcher) Streaming() bool { return d.streaming.Load() }

// SetStreaming switches chat turns between the streaming and plain
// endpoints. A turn already in flight keeps the mode it started with.
func (d *Dispatcher) SetStreaming(on bool) { d.streaming.Store(on) }

// Busy reports whether a turn is in flight.
func (d *Dispatcher) Busy() bool { return d.busy.Load() }

// Submit handles one line of input. Blank input is ignored. All failures
// are written to the log; the only returned error is ErrBusy.
func (d *Dispatcher) Submit(ctx context.Context, input string) (Outcome, error) {
	c := commands.Classify(input, d.registry)
	if c.Kind == commands.KindEmpty {
		return OutcomeIgnored, nil
	}
	if !d.busy.CompareAndSwap(false, true) {
		return OutcomeIgnored, ErrBusy
	}
	defer d.busy.Store(false)

	d.log.Append(model.NewUserEntry(c.Input))
	d.logger.Debug("submit", "kind", c.Kind, "name", c.Name)

	var out Outcome
	switch c.Kind {
	case commands.KindCommandExact:
		out = d.runCommand(ctx, c)
	case commands.KindCommandUnknown:
		out = d.runUnknown(ctx, c)
	default:
		out = d.runMessage(ctx, c.Input)
	}
	d.logger.Debug("resolved", "outcome", out)
	return out, nil
}

// RunSuggestion promotes a suggested command. It takes the same path as a
// typed command but adds no user entry.
func (d *Dispatcher) RunSuggestion(ctx context.Context, name string) (Outcome, error) {
	c := commands.Classify(commands.Prefix+strings.TrimPrefix(strings.TrimSpace(name), commands.Prefix), d.registry)
	if !c.IsCommand() || c.Name == "" {
		return OutcomeIgnored, nil
	}
	if !d.busy.CompareAndSwap(false, true) {
		return OutcomeIgnored, ErrBusy
	}
	defer d.busy.Store(false)

	d.logger.Debug("suggestion", "name", c.Name)
	if c.Kind == commands.KindCommandExact {
		return d.runCommand(ctx, c), nil
	}
	return d.runUnknown(ctx, c), nil
}

// =============================================================================
// STATES
// =============================================================================

func (d *Dispatcher) runCommand(ctx context.Context, c commands.Classification) Outcome {
	gate := d.session.Gate
	if gate.IsGated(c.Name) && gate.Used(c.Name) {
		d.log.Append(model.NewNoticeEntry(GatedText(c.Name), model.ToneWarning))
		return OutcomeGated
	}

	resp, err := d.backend.FetchCommand(ctx, c.Name)
	if err != nil {
		d.logger.Warn("command fetch failed, using offline reply", "command", c.Name, "err", err)
		fb := d.fallback.Handle(c.Input)
		entry := model.NewAssistantEntry(fb.Text)
		entry.View = string(fb.View)
		d.log.Append(entry)
		return OutcomeFallback
	}

	d.log.Append(model.NewResponseEntry(resp))
	gate.MarkUsed(c.Name)
	return OutcomeResolved
}

func (d *Dispatcher) runUnknown(ctx context.Context, c commands.Classification) Outcome {
	if c.Name != "" {
		resp, err := d.backend.FetchCommand(ctx, c.Name)
		if err == nil {
			d.log.Append(model.NewResponseEntry(resp))
			return OutcomeResolved
		}
		d.logger.Debug("unknown command rejected", "command", c.Name, "err", err)
	}
	// The static handler knows a few extras (/sudo, /theme); everything
	// else gets the "not recognized" reply.
	fb := d.fallback.Handle(c.Input)
	entry := model.NewAssistantEntry(fb.Text)
	entry.View = string(fb.View)
	d.log.Append(entry)
	return OutcomeUnrecognized
}

func (d *Dispatcher) runMessage(ctx context.Context, text string) Outcome {
	if d.streaming.Load() {
		return d.runStream(ctx, text)
	}

	raw, err := d.backend.SendMessage(ctx, d.session.ID(), text)
	if err != nil {
		return d.fail("send message", err)
	}

	if resp := response.Parse(raw); resp != nil {
		d.log.Append(model.NewResponseEntry(resp))
		return OutcomeResolved
	}
	d.logger.Debug("reply is not a typed response, showing raw text")
	if raw == "" {
		raw = EmptyReplyText
	}
	d.log.Append(model.NewAssistantEntry(raw))
	return OutcomeResolved
}

func (d *Dispatcher) runStream(ctx context.Context, text string) Outcome {
	q := d.query
	q.Query = text
	q.SessionID = d.session.ID()

	stream, err := d.backend.StreamChat(ctx, q)
	if err != nil {
		return d.fail("open stream", err)
	}
	defer stream.Close()

	d.log.Append(model.NewStreamingEntry())

	var asm api.Assembler
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return d.failStreaming("read stream", err)
		}
		asm.Add(ev)
		if ev.Type == api.EventToken && ev.Content != "" {
			if _, err := d.log.UpdateLast(model.Patch{Delta: ev.Content}); err != nil {
				d.logger.Error("stream entry closed early", "err", err)
				return OutcomeFailed
			}
		}
	}
	asm.Finish()

	patch := model.Patch{Sources: toSources(asm.Sources()), Done: true}
	if asm.Content() == "" {
		empty := EmptyReplyText
		patch.Content = &empty
	}
	if _, err := d.log.UpdateLast(patch); err != nil {
		d.logger.Error("could not finalise stream entry", "err", err)
	}
	if skipped := stream.Skipped(); skipped > 0 {
		d.logger.Warn("stream had malformed records", "skipped", skipped)
	}
	return OutcomeResolved
}

func (d *Dispatcher) fail(op string, err error) Outcome {
	d.logger.Error(op+" failed", "err", err)
	d.log.Append(model.NewNoticeEntry(ErrorText, model.ToneError))
	return OutcomeFailed
}

// failStreaming turns the open streaming entry into the error reply.
func (d *Dispatcher) failStreaming(op string, err error) Outcome {
	d.logger.Error(op+" failed", "err", err)
	text := ErrorText
	if _, uerr := d.log.UpdateLast(model.Patch{Content: &text, Tone: model.ToneError, Done: true}); uerr != nil {
		d.log.Append(model.NewNoticeEntry(ErrorText, model.ToneError))
	}
	return OutcomeFailed
}

func toSources(in []api.Source) []model.Source {
	out := make([]model.Source, 0, len(in))
	for _, s := range in {
		out = append(out, model.Source{
			ID:             s.ID,
			Type:           s.Type,
			Title:          s.Title,
			URL:            s.URL,
			Tags:           append([]string(nil), s.Tags...),
			RelevanceScore: s.RelevanceScore,
		})
	}
	return out
}
