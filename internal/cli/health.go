// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCommand(f *globalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			h, err := a.client.Health(ctx)
			if err != nil {
				return err
			}

			info := HealthInfo{
				BaseURL:   a.cfg.API.BaseURL,
				Status:    h.Status,
				LatencyMS: h.Latency.Milliseconds(),
				Details:   h.Details,
			}
			w := cmd.OutOrStdout()
			if f.jsonOut {
				return NewJSONResponse("health", info).Write(w)
			}

			status := SuccessStyle.Render(info.Status)
			if info.Status != "ok" && info.Status != "healthy" {
				status = WarningStyle.Render(info.Status)
			}
			fmt.Fprintln(w, field("Backend", info.BaseURL))
			fmt.Fprintln(w, LabelStyle.Render("Status")+status)
			fmt.Fprintln(w, field("Latency", h.Latency.Round(time.Millisecond).String()))
			if f.verbose {
				keys := make([]string, 0, len(info.Details))
				for k := range info.Details {
					if k != "status" {
						keys = append(keys, k)
					}
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintln(w, field(k, fmt.Sprint(info.Details[k])))
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for a reply")
	return cmd
}
