// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	apiURL     string
	stream     bool
	store      string
	theme      string
	verbose    bool
	jsonOut    bool
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	f := &globalFlags{}

	root := &cobra.Command{
		Use:   "portana",
		Short: "Chat with an AI portfolio from the terminal",
		Long: `portana is a terminal client for a Portana portfolio backend.

Type a question to chat, or a slash command such as /projects, /experience
or /stack to pull structured portfolio content. Running portana with no
subcommand opens the chat screen.

Quick Start:
  portana                          # open the chat screen
  portana ask "what do you build?" # stream a single answer
  portana run /projects            # run one command and print it
  portana serve-mock               # local backend for demos`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, f, chatFlags{})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "config file (default ~/.portana/config.toml)")
	pf.StringVar(&f.apiURL, "api-url", "", "backend base URL")
	pf.BoolVar(&f.stream, "stream", false, "send questions to the streaming endpoint")
	pf.StringVar(&f.store, "store", "", "session store: memory, file, sqlite or redis")
	pf.StringVar(&f.theme, "theme", "", "color theme: auto, dark or light")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&f.jsonOut, "json", false, "print machine-readable JSON")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCommand(f),
		newAskCommand(f),
		newRunCommand(f),
		newReplCommand(f),
		newCommandsCommand(f),
		newSessionCommand(f),
		newTranscriptsCommand(f),
		newExportCommand(f),
		newConfigCommand(f),
		newHealthCommand(f),
		newServeMockCommand(f),
	)
	return root
}

// Execute runs the command tree against os.Args and returns the exit code.
func Execute() int {
	root := NewRootCommand()
	cmd, err := root.ExecuteC()
	if err != nil {
		jsonMode, _ := root.PersistentFlags().GetBool("json")
		DisplayError(os.Stderr, commandPath(cmd), err, jsonMode)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// commandPath returns the path below the root, e.g. "config get".
func commandPath(cmd *cobra.Command) string {
	if cmd == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()))
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// loadConfig reads the config file and applies flag overrides. A file that
// fails to parse at the default location is reported and the defaults are
// used; an explicit --config must parse.
func loadConfig(cmd *cobra.Command, f *globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFromPath(f.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("warning: ")+err.Error()+"; using defaults")
		}
	}

	applyFlagOverrides(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlagOverrides lets explicit flags win over file and env values, on
// startup and on every reload.
func applyFlagOverrides(cmd *cobra.Command, f *globalFlags, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.API.BaseURL = strings.TrimRight(f.apiURL, "/")
	}
	if flags.Changed("stream") {
		cfg.API.Stream = f.stream
	}
	if flags.Changed("store") {
		cfg.Session.Store = strings.ToLower(f.store)
	}
	if flags.Changed("theme") {
		cfg.UI.Theme = f.theme
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
}

// configFilePath is where "config set" writes.
func configFilePath(f *globalFlags) (string, error) {
	if f.configPath != "" {
		return f.configPath, nil
	}
	return config.ConfigPathTOML()
}
