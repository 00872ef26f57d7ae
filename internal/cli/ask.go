// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/portana/portana-tui/internal/api"
	"github.com/portana/portana-tui/internal/dispatch"
	"github.com/portana/portana-tui/internal/model"
	"github.com/portana/portana-tui/internal/response"
)

type askFlags struct {
	topK     int
	types    []string
	tags     []string
	from     string
	to       string
	noStream bool
}

func newAskCommand(f *globalFlags) *cobra.Command {
	var af askFlags
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and stream the answer",
		Long: `Ask one question against the streaming chat endpoint.

Tokens are printed as they arrive, followed by the retrieved sources.
Use --no-stream to call the non-streaming message endpoint instead.`,
		Example: `  portana ask "what is Tidepool?"
  portana ask --type project --top-k 5 "which projects use Kafka?"
  portana ask --json "what stack do you use?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errUsage("question is empty", `portana ask "what do you build?"`)
			}
			if (af.from == "") != (af.to == "") {
				return errUsage("--from and --to must be used together", "--from 2023-01-01 --to 2023-12-31")
			}

			a, err := newApp(cmd, f, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if af.noStream {
				return askMessage(cmd, a, question, f.jsonOut)
			}
			return askStream(cmd, a, af, question, f.jsonOut)
		},
	}
	cmd.Flags().IntVarP(&af.topK, "top-k", "k", 0, "number of documents to retrieve")
	cmd.Flags().StringSliceVar(&af.types, "type", nil, "only retrieve these document types")
	cmd.Flags().StringSliceVar(&af.tags, "tag", nil, "only retrieve documents with these tags")
	cmd.Flags().StringVar(&af.from, "from", "", "earliest document date (ISO 8601)")
	cmd.Flags().StringVar(&af.to, "to", "", "latest document date (ISO 8601)")
	cmd.Flags().BoolVar(&af.noStream, "no-stream", false, "use the message endpoint")
	return cmd
}

// buildQuery turns flags into a ChatQuery.
func buildQuery(af askFlags, question, sessionID string) api.ChatQuery {
	q := api.ChatQuery{Query: question, SessionID: sessionID}
	if len(af.types) > 0 || len(af.tags) > 0 || af.from != "" {
		q.Filters = &api.ChatFilters{Types: af.types, Tags: af.tags}
		if af.from != "" {
			q.Filters.DateRange = &api.DateRange{From: af.from, To: af.to}
		}
	}
	stream := true
	q.Options = &api.ChatOptions{TopK: af.topK, Stream: &stream}
	return q
}

func askStream(cmd *cobra.Command, a *app, af askFlags, question string, jsonOut bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if af.topK == 0 {
		af.topK = a.cfg.API.TopK
	}
	q := buildQuery(af, question, a.session.ID())

	stream, err := a.client.StreamChat(ctx, q)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var onToken func(string)
	if !jsonOut {
		onToken = func(tok string) { fmt.Fprint(w, tok) }
	}
	asm, err := api.Collect(stream, onToken)
	if err != nil {
		if !jsonOut {
			fmt.Fprintln(w)
		}
		return err
	}

	sum := asm.Summary()
	if jsonOut {
		res := AskResult{
			Query:          question,
			Answer:         asm.Content(),
			TotalTokens:    sum.TotalTokens,
			ResponseTimeMS: sum.ResponseTimeMS,
			SessionID:      sum.SessionID,
		}
		for _, s := range asm.Sources() {
			res.Sources = append(res.Sources, SourceInfo{Title: s.Title, URL: s.URL, Type: s.Type, Score: s.RelevanceScore})
		}
		return NewJSONResponse("ask", res).Write(w)
	}

	fmt.Fprintln(w)
	if sources := asm.Sources(); len(sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, a.renderer.Sources(toModelSources(sources)))
	}
	if sum.TotalTokens > 0 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d tokens in %d ms", sum.TotalTokens, sum.ResponseTimeMS)))
	}
	return nil
}

func askMessage(cmd *cobra.Command, a *app, question string, jsonOut bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	raw, err := a.client.SendMessage(ctx, a.session.ID(), question)
	if err != nil {
		return err
	}

	resp := response.Parse(raw)
	w := cmd.OutOrStdout()
	if jsonOut {
		res := AskResult{Query: question, Answer: raw}
		if resp != nil {
			res.Answer = resp.Body()
		}
		return NewJSONResponse("ask", res).Write(w)
	}
	return printReply(w, a, resp, raw)
}

// printReply renders a parsed reply, or the raw text when it did not parse.
func printReply(w io.Writer, a *app, resp response.Response, raw string) error {
	if resp == nil {
		if raw == "" {
			raw = dispatch.EmptyReplyText
		}
		_, err := fmt.Fprintln(w, a.renderer.Text(raw))
		return err
	}
	_, err := fmt.Fprintln(w, a.renderer.Response(resp))
	return err
}

func toModelSources(in []api.Source) []model.Source {
	out := make([]model.Source, 0, len(in))
	for _, s := range in {
		out = append(out, model.Source{
			ID:             s.ID,
			Type:           s.Type,
			Title:          s.Title,
			URL:            s.URL,
			Tags:           s.Tags,
			RelevanceScore: s.RelevanceScore,
		})
	}
	return out
}
