package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/salvage/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Run        string // run token; empty means latest journaled run
	List       bool   // list runs instead of dumping one
	FailedOnly bool
}

// TraceResult holds one run's journaled history.
type TraceResult struct {
	Run        journal.Run               `json:"run"`
	Iterations []journal.IterationRecord `json:"iterations"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump journaled runs and iteration outcomes",
		Long: `Dump the journaled history of a run: metadata plus the recorded
outcome of every iteration, in iteration order.

Exit codes:
  0 - Trace printed
  2 - Command error (no such run, empty journal, etc.)

Examples:
  salvage trace --db ./salvage.db
  salvage trace --db ./salvage.db --run 0198ad3e-... --failed-only
  salvage trace --db ./salvage.db --list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (defaults to the latest journaled run)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs instead of dumping one")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed-only", false, "show failed iterations only")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.List {
		return listRuns(ctx, j, opts, cmd)
	}

	var run journal.Run
	if opts.Run != "" {
		run, err = j.ReadRun(ctx, opts.Run)
	} else {
		run, err = j.LatestRun(ctx)
	}
	if errors.Is(err, journal.ErrNotFound) {
		return NewExitError(ExitCommandError, "no such run in journal")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var recs []journal.IterationRecord
	if opts.FailedOnly {
		recs, err = j.FailedIterations(ctx, run.Token)
	} else {
		recs, err = j.ReadIterations(ctx, run.Token)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read iterations", err)
	}

	result := TraceResult{Run: run, Iterations: recs}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: scenario %q, %d iteration(s), seed %d\n",
		run.Token, run.Scenario, run.Iterations, run.Seed)
	if run.StartedAt != "" {
		fmt.Fprintf(w, "  started %s\n", run.StartedAt)
	}
	fmt.Fprintln(w)

	for _, rec := range recs {
		if rec.Success {
			fmt.Fprintf(w, "✓ iteration %d = %s\n", rec.Iteration, rec.Value)
		} else {
			fmt.Fprintf(w, "✗ iteration %d: %s\n", rec.Iteration, rec.Err)
		}
	}

	return nil
}

func listRuns(ctx context.Context, j *journal.Journal, opts *TraceOptions, cmd *cobra.Command) error {
	runs, err := j.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs in journal.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %-20s %d iteration(s)\n", run.Token, run.Scenario, run.Iterations)
	}
	return nil
}
