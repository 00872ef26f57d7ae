// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newSessionCommand(f *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the session id and one-time command state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			info := sessionInfo(a)
			w := cmd.OutOrStdout()
			if f.jsonOut {
				return NewJSONResponse("session", info).Write(w)
			}
			fmt.Fprintln(w, TitleStyle.Render("Session"))
			fmt.Fprintln(w, field("ID", info.ID))
			fmt.Fprintln(w, field("Store", info.Store))
			fmt.Fprintln(w, field("Persisted", fmt.Sprint(info.Persisted)))
			fmt.Fprintln(w, field("Gated", strings.Join(info.Gated, ", ")))
			used := strings.Join(info.Used, ", ")
			if used == "" {
				used = "none"
			}
			fmt.Fprintln(w, field("Already run", used))
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "id",
			Short: "Print the session id",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd, f, appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()
				if f.jsonOut {
					return NewJSONResponse("session id", map[string]string{"id": a.session.ID()}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.session.ID())
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the session id and one-time command flags",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := newApp(cmd, f, appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()
				if err := a.session.Reset(); err != nil {
					return fmt.Errorf("reset session: %w", err)
				}
				if f.jsonOut {
					return NewJSONResponse("session reset", map[string]bool{"reset": true}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Session reset."))
				return nil
			},
		},
	)
	return cmd
}

func sessionInfo(a *app) SessionInfo {
	gate := a.session.Gate
	info := SessionInfo{
		ID:        a.session.ID(),
		Store:     a.cfg.Session.Store,
		Persisted: a.session.Identity.Persistent(),
		Gated:     gate.Commands(),
		Used:      []string{},
	}
	sort.Strings(info.Gated)
	for _, name := range info.Gated {
		if gate.Used(name) {
			info.Used = append(info.Used, name)
		}
	}
	return info
}
