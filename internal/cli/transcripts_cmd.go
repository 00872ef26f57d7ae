// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/export"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/storage"
	"github.com/portana/portana-tui/internal/util"
)

func newTranscriptsCommand(f *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"history"},
		Short:   "List, show or delete saved conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTranscripts(cmd, f)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved conversations, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listTranscripts(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a saved conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, t, err := loadTranscript(cmd, f, args[0])
				if err != nil {
					return err
				}
				defer a.Close()

				w := cmd.OutOrStdout()
				if f.jsonOut {
					return NewJSONResponse("transcripts show", t).Write(w)
				}
				l := model.NewLog()
				l.Restore(t)
				fmt.Fprintln(w, TitleStyle.Render(t.Summary))
				fmt.Fprintln(w, DimStyle.Render(t.ID+"  "+util.Ago(t.UpdatedAt)))
				fmt.Fprintln(w)
				fmt.Fprintln(w, a.renderer.Entries(l.Entries()))
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a saved conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(cmd, f, appOptions{})
				if err != nil {
					return err
				}
				defer a.Close()
				ts, err := a.transcripts()
				if err != nil {
					return err
				}
				if err := ts.Delete(args[0]); err != nil {
					return transcriptErr(args[0], err)
				}
				if f.jsonOut {
					return NewJSONResponse("transcripts delete", map[string]string{"deleted": args[0]}).Write(cmd.OutOrStdout())
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted "+args[0]))
				return nil
			},
		},
	)
	return cmd
}

func listTranscripts(cmd *cobra.Command, f *globalFlags) error {
	a, err := newApp(cmd, f, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	ts, err := a.transcripts()
	if err != nil {
		return err
	}
	metas, err := ts.List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if f.jsonOut {
		return NewJSONResponse("transcripts", metas).Write(w)
	}
	if len(metas) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No saved conversations."))
		return nil
	}
	for _, m := range metas {
		fmt.Fprintf(w, "%s  %s  %s\n",
			CommandStyle.Render(m.ID),
			ValueStyle.Render(util.PadRight(util.Truncate(m.Summary, 40), 40)),
			DimStyle.Render(fmt.Sprintf("%d entries, %s", m.EntryCount, util.Ago(m.UpdatedAt))))
	}
	return nil
}

// loadTranscript opens the app and loads id, or the latest when id is "".
func loadTranscript(cmd *cobra.Command, f *globalFlags, id string) (*app, *storage.Transcript, error) {
	a, err := newApp(cmd, f, appOptions{})
	if err != nil {
		return nil, nil, err
	}
	ts, err := a.transcripts()
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	var t *storage.Transcript
	if id == "" {
		t, err = ts.Latest()
	} else {
		t, err = ts.Load(id)
	}
	if err != nil {
		a.Close()
		return nil, nil, transcriptErr(id, err)
	}
	return a, t, nil
}

func transcriptErr(id string, err error) error {
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		if id == "" {
			id = "latest"
		}
		return &NotFoundError{Resource: "transcript", ID: id}
	}
	return err
}

// =============================================================================
// EXPORT
// =============================================================================

type exportFlags struct {
	format       string
	output       string
	open         bool
	stdout       bool
	noMetadata   bool
	noTimestamps bool
	theme        string
}

func newExportCommand(f *globalFlags) *cobra.Command {
	var ef exportFlags
	cmd := &cobra.Command{
		Use:   "export [transcript-id]",
		Short: "Export a saved conversation",
		Long: fmt.Sprintf(`Export a saved conversation to a file.

Without an id the most recent conversation is exported.
Formats: %s (aliases: md, yml, htm).`, strings.Join(export.Formats(), ", ")),
		Example: `  portana export
  portana export --format html --open
  portana export 20250101-120000-ab12cd34 --format yaml --stdout`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = ef.output
			opts.OpenAfterExport = ef.open
			opts.IncludeMetadata = !ef.noMetadata
			opts.IncludeTimestamps = !ef.noTimestamps
			if ef.theme != "" {
				opts.Theme = ef.theme
			}

			exp, err := export.New(ef.format, opts)
			if err != nil {
				return errUsage(err.Error(), "--format markdown")
			}

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			a, t, err := loadTranscript(cmd, f, id)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if ef.stdout {
				data, err := exp.Export(t)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}

			path, err := export.ExportToFile(t, exp, opts)
			if path == "" && err != nil {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("could not open file: ")+err.Error())
			}
			if f.jsonOut {
				return NewJSONResponse("export", map[string]string{"path": path, "format": ef.format, "transcript": t.ID}).Write(w)
			}
			fmt.Fprintln(w, SuccessStyle.Render("Exported to ")+path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&ef.format, "format", "f", "markdown", "output format")
	cmd.Flags().StringVarP(&ef.output, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&ef.open, "open", false, "open the file after exporting")
	cmd.Flags().BoolVar(&ef.stdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&ef.noMetadata, "no-metadata", false, "omit the metadata header")
	cmd.Flags().BoolVar(&ef.noTimestamps, "no-timestamps", false, "omit per-entry timestamps")
	cmd.Flags().StringVar(&ef.theme, "html-theme", "", "HTML theme: dark or light")
	return cmd
}
