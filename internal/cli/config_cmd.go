// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/config"
)

func newConfigCommand(f *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change settings stored in the config file.

Keys use dot notation, for example api.base_url or session.store.
Run "portana config keys" for the full list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd, f)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return showConfig(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, f)
				if err != nil {
					return err
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return errUsage(err.Error(), "portana config get api.base_url")
				}
				if args[0] == "api.token" && v != "" {
					v = "********"
				}
				if f.jsonOut {
					return NewJSONResponse("config get", map[string]any{"key": args[0], "value": v}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
				return nil
			},
		},
		&cobra.Command{
			Use:     "set <key> <value>",
			Short:   "Change one setting in the config file",
			Example: "  portana config set api.base_url https://portfolio.example.com\n  portana config set session.gated_commands start,contact",
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfig(cmd, f, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := configFilePath(f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the config file for errors",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := configFilePath(f)
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err != nil {
					return &NotFoundError{Resource: "config file", ID: path}
				}
				if _, err := config.LoadFromPath(path); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("OK ")+path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every settable key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if f.jsonOut {
					return NewJSONResponse("config keys", config.GetAllKeys()).Write(cmd.OutOrStdout())
				}
				for _, k := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			},
		},
	)
	return cmd
}

func showConfig(cmd *cobra.Command, f *globalFlags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if f.jsonOut {
		redacted := cfg.Clone()
		if redacted.API.Token != "" {
			redacted.API.Token = "********"
		}
		return NewJSONResponse("config", redacted).Write(w)
	}
	fmt.Fprintln(w, cfg.String())
	return nil
}

// setConfig edits the file only; flags and environment overrides are not
// written back.
func setConfig(cmd *cobra.Command, f *globalFlags, key, value string) error {
	path, err := configFilePath(f)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := loadFileOnly(cfg, path); err != nil {
			return err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return errUsage(err.Error(), "portana config keys")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	if f.jsonOut {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": value, "path": path}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), field(key, value))
	return nil
}

func loadFileOnly(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.LoadJSON(cfg, path)
	}
	return config.LoadTOML(cfg, path)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
