package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"animforge/internal/history"
	"animforge/internal/textutil"
)

const (
	shortIDLength    = 8
	historyTimestamp = "2006-01-02 15:04:05"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded pipeline runs",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format(historyTimestamp),
					textutil.Truncate(run.Label, 32),
					run.SceneID,
					run.Status,
					run.FailureStage,
					strconv.Itoa(run.ValidationAttempts),
					strconv.Itoa(run.RenderAttempts),
					strconv.Itoa(run.RepairCalls),
					run.Duration().Round(time.Millisecond).String(),
				})
			}
			headers := []string{"ID", "Started", "Label", "Scene", "Status", "Stage", "Valid.", "Render", "Repairs", "Duration"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its failed attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, run)
			}
			printRun(cmd, run, showSource)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	cmd.Flags().BoolVar(&showSource, "source", false, "Print the final source with line numbers")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff (e.g. 72h)")
	return cmd
}

func printRun(cmd *cobra.Command, run *history.Run, showSource bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	kind := statusOK
	if run.Status != history.StatusSucceeded {
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, run.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", kind, run.Status, colorize))
	if run.Label != "" {
		fmt.Fprintln(out, renderStatusLine("Label", statusInfo, run.Label, colorize))
	}
	if run.SceneID != "" {
		fmt.Fprintln(out, renderStatusLine("Scene", statusInfo, run.SceneID, colorize))
	}
	if run.ArtifactPath != "" {
		fmt.Fprintln(out, renderStatusLine("Artifact", statusInfo, run.ArtifactPath, colorize))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format(historyTimestamp), colorize))
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, run.Duration().Round(time.Millisecond).String(), colorize))

	if len(run.Errors) > 0 {
		rows := make([][]string, 0, len(run.Errors))
		for _, attempt := range run.Errors {
			rows = append(rows, []string{
				attempt.Stage,
				strconv.Itoa(attempt.Attempt),
				textutil.Truncate(textutil.FirstLine(attempt.Message), errorColumnWidth),
			})
		}
		fmt.Fprintln(out, renderTable(out, []string{"Stage", "Attempt", "Error"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
	}

	if showSource && run.Source != "" {
		fmt.Fprintln(out, textutil.NumberLines(run.Source))
	}
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}
