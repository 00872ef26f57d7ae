// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/config"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/storage"
	"github.com/portana/portana-tui/internal/ui/chat"
)

type chatFlags struct {
	resume     bool
	transcript string
	noSave     bool
}

func newChatCommand(f *globalFlags) *cobra.Command {
	var cf chatFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat screen",
		Long: `Open the interactive chat screen.

The conversation is saved as a transcript when you quit (and on ctrl+e).
Use --resume to continue the most recent one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, f, cf)
		},
	}
	cmd.Flags().BoolVarP(&cf.resume, "resume", "r", false, "continue the latest transcript")
	cmd.Flags().StringVar(&cf.transcript, "transcript", "", "continue the transcript with this id")
	cmd.Flags().BoolVar(&cf.noSave, "no-save", false, "do not save the conversation on exit")
	return cmd
}

func runChat(cmd *cobra.Command, f *globalFlags, cf chatFlags) error {
	if !isTerminal(os.Stdout) {
		return errUsage("the chat screen needs a terminal", "portana run /projects")
	}

	a, err := newApp(cmd, f, appOptions{logFile: true, out: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	ts, err := a.transcripts()
	if err != nil {
		return err
	}
	saver := &transcriptSaver{app: a, store: ts}

	if cf.resume || cf.transcript != "" {
		if err := saver.restore(cf.transcript); err != nil {
			return err
		}
	}

	if w := a.watchConfig(cmd, f); w != nil {
		defer w.Close()
	}

	m := chat.New(chat.Options{
		Dispatcher: a.dispatcher,
		Renderer:   a.renderer,
		Theme:      a.theme,
		BaseURL:    a.cfg.API.BaseURL,
		Streaming:  a.cfg.API.Stream,
		Greeting:   a.cfg.UI.Greeting,
		Health: func(ctx context.Context) (time.Duration, error) {
			h, err := a.client.Health(ctx)
			if err != nil {
				return 0, err
			}
			return h.Latency, nil
		},
		Save:   saver.Save,
		Logger: a.logger,
	})

	a.logger.Info("chat started", "backend", a.cfg.API.BaseURL, "session", a.session.ID(), "stream", a.cfg.API.Stream)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}

	if !cf.noSave && saver.worthSaving() {
		id, err := saver.Save()
		if err != nil {
			a.logger.Error("save transcript", "err", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("Saved transcript "+id))
	}
	return nil
}

// watchConfig reloads the config file on change and applies what can be
// changed while running.
func (a *app) watchConfig(cmd *cobra.Command, f *globalFlags) *config.Watcher {
	path, err := configFilePath(f)
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	current := a.cfg.Clone()
	w, err := config.Watch(path, 300*time.Millisecond, a.logger, func(cfg *config.Config, err error) {
		if err != nil {
			a.logger.Warn("config reload failed", "path", path, "err", err)
			return
		}
		applyFlagOverrides(cmd, f, cfg)
		a.applyConfig(current, cfg)
		current = cfg
	})
	if err != nil {
		a.logger.Debug("config watch unavailable", "err", err)
		return nil
	}
	return w
}

// applyConfig pushes the live settings of next into the running components:
// api.stream, ui.markdown, ui.word_wrap and log.level. The backend, its
// credentials, the store and the theme are fixed for the run, so changes to
// them are only logged.
func (a *app) applyConfig(prev, next *config.Config) {
	if next.Log.Level != prev.Log.Level {
		if err := logging.SetLevel(a.logger, next.Log.Level); err != nil {
			a.logger.Warn("log level not applied", "level", next.Log.Level, "err", err)
		} else {
			a.logger.Info("log level changed", "level", next.Log.Level)
		}
	}
	if next.API.Stream != prev.API.Stream {
		a.dispatcher.SetStreaming(next.API.Stream)
		a.logger.Info("streaming changed", "stream", next.API.Stream)
	}
	if next.UI.Markdown != prev.UI.Markdown {
		a.renderer.SetMarkdown(next.UI.Markdown && !a.theme.IsPlain())
	}
	if next.UI.WordWrap != prev.UI.WordWrap {
		a.renderer.SetWrapLimit(next.UI.WordWrap)
	}

	if next.API.BaseURL != prev.API.BaseURL || next.API.Token != prev.API.Token ||
		next.Session.Store != prev.Session.Store || next.UI.Theme != prev.UI.Theme {
		a.logger.Warn("settings changed that need a restart",
			"base_url", next.API.BaseURL, "store", next.Session.Store, "theme", next.UI.Theme)
	}
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// transcriptSaver writes the live log to one transcript, reusing its id on
// every save.
type transcriptSaver struct {
	app   *app
	store *storage.TranscriptStore

	mu sync.Mutex
	id string
}

// restore loads a transcript into the log. An empty id means the latest.
func (s *transcriptSaver) restore(id string) error {
	var (
		t   *storage.Transcript
		err error
	)
	if id == "" {
		t, err = s.store.Latest()
		if errors.Is(err, storage.ErrTranscriptNotFound) {
			return nil
		}
	} else {
		t, err = s.store.Load(id)
	}
	if err != nil {
		return err
	}
	s.app.log.Restore(t)
	s.mu.Lock()
	s.id = t.ID
	s.mu.Unlock()
	s.app.logger.Info("resumed transcript", "id", t.ID, "entries", len(t.Entries))
	return nil
}

// worthSaving reports whether the user said anything.
func (s *transcriptSaver) worthSaving() bool {
	for _, e := range s.app.log.Entries() {
		if e.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// Save persists the log and returns the transcript id.
func (s *transcriptSaver) Save() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.app.log.ToTranscript(s.app.session.ID(), s.app.cfg.API.BaseURL)
	t.ID = s.id
	id, err := s.store.Save(t)
	if err != nil {
		return "", err
	}
	s.id = id
	return id, nil
}
