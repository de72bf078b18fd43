package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"releasekit/internal/history"
	"releasekit/internal/ui"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded release runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No release runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRuns(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its artifacts and errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("release history is disabled (history.enabled = false)")
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func renderRuns(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Project,
			run.Mode,
			dash(run.Repository),
			string(run.Status),
			formatTimestamp(run.StartedAt),
			formatDuration(run),
			strconv.Itoa(run.ArtifactCount),
			strconv.Itoa(run.ErrorCount),
		})
	}
	return ui.RenderTable(
		[]string{"Run", "Project", "Mode", "Repository", "Status", "Started", "Duration", "Artifacts", "Errors"},
		rows,
		[]ui.Alignment{ui.AlignLeft, ui.AlignLeft, ui.AlignLeft, ui.AlignLeft, ui.AlignLeft, ui.AlignLeft, ui.AlignRight, ui.AlignRight, ui.AlignRight},
	)
}

func printRun(out io.Writer, run *history.Run) {
	fmt.Fprintf(out, "Run: %s\n", run.ID)
	fmt.Fprintf(out, "Project: %s\n", run.Project)
	fmt.Fprintf(out, "Mode: %s\n", run.Mode)
	fmt.Fprintf(out, "Repository: %s\n", dash(run.Repository))
	fmt.Fprintf(out, "Status: %s\n", run.Status)
	fmt.Fprintf(out, "Started: %s\n", formatTimestamp(run.StartedAt))
	fmt.Fprintf(out, "Duration: %s\n", formatDuration(*run))

	if len(run.Artifacts) > 0 {
		rows := make([][]string, 0, len(run.Artifacts))
		for _, a := range run.Artifacts {
			rows = append(rows, []string{a.Name, a.Version, strconv.FormatInt(a.Size, 10), shortDigest(a.Digest)})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.RenderTable(
			[]string{"Artifact", "Version", "Size", "Digest"},
			rows,
			[]ui.Alignment{ui.AlignLeft, ui.AlignLeft, ui.AlignRight, ui.AlignLeft},
		))
	}
	if len(run.Errors) > 0 {
		rows := make([][]string, 0, len(run.Errors))
		for _, e := range run.Errors {
			rows = append(rows, []string{e.Phase, dash(e.Module), dash(e.Version), e.Message})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.RenderTable([]string{"Phase", "Module", "Version", "Message"}, rows, nil))
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(run history.Run) string {
	if run.FinishedAt == nil {
		return "-"
	}
	return run.Duration().Round(time.Second).String()
}

func shortDigest(digest string) string {
	const width = 19 // "sha256:" plus 12 hex characters
	if len(digest) <= width {
		return dash(digest)
	}
	return digest[:width]
}
