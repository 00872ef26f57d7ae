// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/config"
	"github.com/portana/portana-tui/internal/dispatch"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/render"
	"github.com/portana/portana-tui/internal/session"
	"github.com/portana/portana-tui/internal/storage"
	"github.com/portana/portana-tui/internal/ui/styles"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds everything a command needs to run turns against the backend.
type app struct {
	cfg    *config.Config
	logger *log.Logger

	store      storage.Store
	session    *session.Context
	client     *api.Client
	registry   *commands.Registry
	log        *model.Log
	dispatcher *dispatch.Dispatcher
	theme      *styles.Theme
	renderer   *render.Renderer

	closers []io.Closer
}

type appOptions struct {
	// logFile forces logging to a file; the TUI needs the terminal.
	logFile bool
	// out is where rendered output goes; it selects the theme's color profile.
	out io.Writer
	// width overrides the render width.
	width int
}

// newApp loads config and builds the component graph. Callers must Close.
func newApp(cmd *cobra.Command, f *globalFlags, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	if err := a.initLogger(cmd, opts.logFile); err != nil {
		return nil, err
	}

	a.store = a.openStore()
	a.closers = append(a.closers, a.store)

	a.session = session.New(a.store, session.Options{
		Gated:       cfg.Session.GatedCommands,
		PersistGate: cfg.Session.PersistGate,
		Logger:      a.logger,
	})

	a.client = api.New(api.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout(),
		MaxRetries:    retriesOption(cfg.API.MaxRetries),
		RatePerSecond: rateOption(cfg.API.RatePerSec),
		UserAgent:     "portana-tui/" + Version,
		Token:         cfg.API.Token,
		Logger:        a.logger,
	})

	a.registry = commands.DefaultRegistry()
	a.log = model.NewLog()

	var query api.ChatQuery
	if cfg.API.TopK > 0 {
		query.Options = &api.ChatOptions{TopK: cfg.API.TopK}
	}
	a.dispatcher = dispatch.New(dispatch.Options{
		Backend:   a.client,
		Log:       a.log,
		Session:   a.session,
		Registry:  a.registry,
		Streaming: cfg.API.Stream,
		Query:     query,
		Logger:    a.logger,
	})

	out := opts.out
	if out == nil {
		out = cmd.OutOrStdout()
	}
	a.theme = styles.NewTheme(cfg.UI.Theme, out)

	width := opts.width
	if width == 0 {
		width = cfg.UI.WordWrap
	}
	if width == 0 {
		width = TerminalWidth(out)
	}
	a.renderer = render.New(render.Options{
		Theme:         a.theme,
		Registry:      a.registry,
		Width:         width,
		WrapLimit:     cfg.UI.WordWrap,
		Markdown:      cfg.UI.Markdown && !a.theme.IsPlain(),
		SuggestionKey: "ctrl+s",
	})
	return a, nil
}

func (a *app) initLogger(cmd *cobra.Command, toFile bool) error {
	file := a.cfg.Log.File
	if toFile && file == "" {
		dir, err := storage.DefaultDir()
		if err != nil {
			return err
		}
		file = filepath.Join(dir, "portana.log")
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  a.cfg.Log.Level,
		File:   file,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)
	return nil
}

// openStore opens the configured backend. Failure degrades to memory so the
// session keeps working for this run.
func (a *app) openStore() storage.Store {
	store, err := storage.Open(storage.Options{
		Backend:   a.cfg.Session.Store,
		Path:      a.cfg.Session.Path,
		RedisAddr: a.cfg.Session.RedisAddr,
		KeyPrefix: "portana:",
	})
	if err != nil {
		a.logger.Warn("session store unavailable, using memory", "store", a.cfg.Session.Store, "err", err)
		return storage.NewMemoryStore()
	}
	return store
}

// transcripts opens the transcript store with the configured cap.
func (a *app) transcripts() (*storage.TranscriptStore, error) {
	ts, err := storage.NewTranscriptStore()
	if err != nil {
		return nil, err
	}
	ts.MaxTranscripts = a.cfg.Session.MaxTranscripts
	return ts, nil
}

// Close releases the store and the log file.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// retriesOption maps the config's "0 = none" to the client's "negative = none".
func retriesOption(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

// rateOption maps the config's "0 = unlimited" to the client's "negative = unlimited".
func rateOption(r float64) float64 {
	if r <= 0 {
		return -1
	}
	return r
}
