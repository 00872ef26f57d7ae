// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/dispatch"
)

// ErrTurnFailed is returned by "run" when the backend call failed and the
// generic error reply was shown. JSON output reports it as the outcome.
var ErrTurnFailed = errors.New("request failed")

func newRunCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <input...>",
		Short: "Run one line through the dispatcher and print the reply",
		Long: `Run one line exactly as if it were typed into the chat screen.

Slash commands go to the command endpoint (falling back to built-in
content when the backend is unreachable); anything else is sent as a
chat message.`,
		Example: `  portana run /projects
  portana run "what are you working on?"
  portana --stream run "tell me about Tidepool"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if strings.TrimSpace(input) == "" {
				return errUsage("input is empty", `portana run /help`)
			}

			a, err := newApp(cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runTurn(ctx, a, cmd.OutOrStdout(), input, f.jsonOut)
		},
	}
}

// runTurn submits input and prints what it produced.
func runTurn(ctx context.Context, a *app, w io.Writer, input string, jsonOut bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := a.log.Len()

	var printer *turnPrinter
	if !jsonOut {
		printer = newTurnPrinter(w, a.renderer, a.log)
		defer a.log.Subscribe(printer.Observe)()
	}

	outcome, err := a.dispatcher.Submit(ctx, input)
	if err != nil {
		return err
	}

	if jsonOut {
		entries := a.log.Entries()[start:]
		if werr := NewJSONResponse("run", TurnResult{
			Input:   input,
			Outcome: outcome.String(),
			Entries: entryInfos(entries),
		}).Write(w); werr != nil {
			return werr
		}
	} else {
		printer.Flush(false)
	}

	switch outcome {
	case dispatch.OutcomeFailed:
		if jsonOut {
			return nil
		}
		return ErrTurnFailed
	case dispatch.OutcomeFallback:
		a.logger.Warn("backend unreachable, showed built-in content", "input", input)
	}
	return nil
}
