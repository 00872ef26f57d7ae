// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineEditor wraps liner with persistent history and command completion.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor(registry *commands.Registry) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(func(input string) []string {
		if !strings.HasPrefix(input, commands.Prefix) || strings.ContainsAny(input, " \t") {
			return nil
		}
		matches := registry.Complete(input)
		out := make([]string, 0, len(matches))
		for _, d := range matches {
			out = append(out, d.Command)
		}
		return out
	})

	dir, err := storage.DefaultDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{line: line, historyFile: filepath.Join(dir, "repl_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return e
}

// ReadInput prompts for a line and records it in the history.
func (e *lineEditor) ReadInput(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history (owner read/write only) and restores the terminal.
func (e *lineEditor) Close() {
	if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		_, _ = e.line.WriteHistory(f)
		f.Close()
	}
	e.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// replQuit are the inputs that end the REPL. They are never sent.
var replQuit = map[string]bool{"exit": true, "quit": true, ":q": true}

func newReplCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat at a plain prompt without the full-screen UI",
		Long: `Chat at a line-editing prompt.

Tab completes slash commands, up and down walk the input history, and
ctrl+c cancels the answer in flight. Type exit or press ctrl+d to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !IsTTY() {
				return errUsage("repl needs an interactive terminal", `echo /projects | xargs portana run`)
			}
			a, err := newApp(cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			return runRepl(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func runRepl(ctx context.Context, a *app, w io.Writer) error {
	editor := newLineEditor(a.registry)
	defer editor.Close()

	printer := newTurnPrinter(w, a.renderer, a.log)
	defer a.log.Subscribe(printer.Observe)()

	if a.cfg.UI.Greeting {
		a.log.Append(model.NewGreeting())
		printer.Flush(false)
	}

	// ctrl+c during a turn cancels it; at the prompt liner handles it.
	var (
		mu     sync.Mutex
		cancel context.CancelFunc
	)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			mu.Lock()
			if cancel != nil {
				cancel()
				fmt.Fprintln(w, "\n"+WarningStyle.Render("[Cancelled]"))
			}
			mu.Unlock()
		}
	}()

	prompt := a.theme.InputPrompt.Render("portana› ")
	for {
		input, err := editor.ReadInput(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(w)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if replQuit[strings.ToLower(input)] {
			return nil
		}

		turnCtx, turnCancel := context.WithCancel(ctx)
		mu.Lock()
		cancel = turnCancel
		mu.Unlock()

		outcome, err := a.dispatcher.Submit(turnCtx, input)

		mu.Lock()
		cancel = nil
		mu.Unlock()
		turnCancel()

		if err != nil {
			fmt.Fprintln(w, WarningStyle.Render(err.Error()))
			continue
		}
		printer.Flush(false)
		a.logger.Debug("turn", "outcome", outcome)
	}
}
