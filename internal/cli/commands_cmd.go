// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/commands"
	"github.com/portana/portana-tui/internal/util"
)

func newCommandsCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "commands [query]",
		Aliases: []string{"cmds"},
		Short:   "List slash commands, or fuzzy-search them",
		Example: `  portana commands
  portana commands exp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := commands.DefaultRegistry()
			descs := reg.All()
			if len(args) == 1 {
				descs = reg.Search(args[0])
				if len(descs) == 0 {
					return &NotFoundError{Resource: "command matching", ID: args[0]}
				}
			}

			w := cmd.OutOrStdout()
			if f.jsonOut {
				infos := make([]CommandInfo, 0, len(descs))
				for _, d := range descs {
					infos = append(infos, CommandInfo{Command: d.Command, Label: d.Label, Description: d.Description})
				}
				return NewJSONResponse("commands", infos).Write(w)
			}

			for _, d := range descs {
				fmt.Fprintf(w, "%s %s %s\n",
					CommandStyle.Render(util.PadRight(d.Command, 13)),
					ValueStyle.Render(util.PadRight(d.Label, 12)),
					DimStyle.Render(d.Description))
			}
			return nil
		},
	}
}
