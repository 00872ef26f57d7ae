// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/logging"
	"github.com/portana/portana-tui/internal/server"
)

type serveFlags struct {
	addr      string
	portfolio string
	fail      []string
	delay     time.Duration
	token     string
	rate      float64
}

func newServeMockCommand(f *globalFlags) *cobra.Command {
	var sf serveFlags
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run a local stand-in for the portfolio backend",
		Long: `Run a local backend that speaks the same API as the real one.

Answers come from a built-in portfolio, or from a YAML file given with
--portfolio. Commands named with --fail answer 503 so the offline
fallback can be tried.`,
		Example: `  portana serve-mock
  portana serve-mock --portfolio ./portfolio.yaml --fail projects
  portana serve-mock --addr :8080 --token secret --rate 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if f.verbose {
				level = "debug"
			}
			logger, closer, err := logging.New(logging.Options{Level: level, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer closer.Close()

			portfolio := server.DefaultPortfolio()
			if sf.portfolio != "" {
				portfolio, err = server.LoadPortfolio(sf.portfolio)
				if err != nil {
					return err
				}
			}

			srv := server.New(server.Options{
				Addr:          sf.addr,
				Portfolio:     portfolio,
				Registry:      commands.DefaultRegistry(),
				TokenDelay:    sf.delay,
				FailCommands:  sf.fail,
				AuthToken:     sf.token,
				RatePerSecond: sf.rate,
				Logger:        logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&sf.addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&sf.portfolio, "portfolio", "", "YAML portfolio file")
	cmd.Flags().StringSliceVar(&sf.fail, "fail", nil, "commands that answer 503")
	cmd.Flags().DurationVar(&sf.delay, "delay", server.DefaultTokenDelay, "delay between streamed tokens")
	cmd.Flags().StringVar(&sf.token, "token", "", "require this bearer token")
	cmd.Flags().Float64Var(&sf.rate, "rate", 0, "requests per second per client (0 = unlimited)")
	return cmd
}
