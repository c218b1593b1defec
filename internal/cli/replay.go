package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/salvage/internal/engine"
	"github.com/roach88/salvage/internal/journal"
	"github.com/roach88/salvage/internal/scenario"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Run       string // run token; empty means latest journaled run
	Iteration int    // 0 means every failed iteration
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Token      string                `json:"token"`
	Scenario   string                `json:"scenario"`
	Iterations []engine.ReplayResult `json:"iterations"`
	AllMatch   bool                  `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay journaled iterations from their seed snapshots",
		Long: `Restore journaled seed snapshots and re-execute the scenario body.

By default every failed iteration of the run is replayed; --iteration
narrows it to one. Each replayed outcome is compared against what the
journal recorded. Iterations that never reached a random draw carry no
snapshot and are reported as not captured.

Exit codes:
  0 - Every captured iteration reproduced its recorded outcome
  1 - At least one replay diverged
  2 - Command error (unknown run, scenario mismatch, etc.)

Examples:
  salvage replay --db ./salvage.db scenario.yaml
  salvage replay --db ./salvage.db --run 0198ad3e-... scenario.yaml
  salvage replay --db ./salvage.db --iteration 7 scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Run, "run", "", "run token (defaults to the latest journaled run)")
	cmd.Flags().IntVar(&opts.Iteration, "iteration", 0, "replay a single iteration instead of every failed one")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(cmd, opts.Verbose)

	sc, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	token := opts.Run
	if token == "" {
		latest, err := j.LatestRun(ctx)
		if errors.Is(err, journal.ErrNotFound) {
			return NewExitError(ExitCommandError, "journal holds no runs")
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find latest run", err)
		}
		token = latest.Token
	}

	eng := engine.New(j, engine.WithLogger(logger))
	results, err := eng.ReplayFromJournal(ctx, sc, token, opts.Iteration)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	summary := ReplaySummary{
		Token:      token,
		Scenario:   sc.Name,
		Iterations: results,
		AllMatch:   true,
	}
	for _, res := range results {
		if res.Captured && !res.Match {
			summary.AllMatch = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, summary)
	}
	return outputReplayText(cmd, summary, opts.Verbose)
}

// outputReplayJSON outputs the replay summary as JSON.
func outputReplayJSON(cmd *cobra.Command, summary ReplaySummary) error {
	resp := CLIResponse{Status: "ok", Data: summary}
	if !summary.AllMatch {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    "E_REPLAY",
			Message: "replayed outcomes diverged from the journal",
		}
	}

	if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	if !summary.AllMatch {
		return NewExitError(ExitFailure, "replayed outcomes diverged from the journal")
	}
	return nil
}

// outputReplayText outputs the replay summary as text.
func outputReplayText(cmd *cobra.Command, summary ReplaySummary, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay of run %s (scenario %q): %d iteration(s)\n",
		summary.Token, summary.Scenario, len(summary.Iterations))
	fmt.Fprintln(w)

	for _, res := range summary.Iterations {
		switch {
		case !res.Captured:
			fmt.Fprintf(w, "- iteration %d: no snapshot (body never drew)\n", res.Iteration)
		case res.Match:
			fmt.Fprintf(w, "✓ iteration %d reproduced\n", res.Iteration)
		default:
			fmt.Fprintf(w, "✗ iteration %d diverged\n", res.Iteration)
			fmt.Fprintf(w, "    recorded: %s\n", res.Recorded)
			fmt.Fprintf(w, "    replayed: %s\n", res.Replayed)
		}

		if verbose && res.Captured && res.Match {
			fmt.Fprintf(w, "    outcome: %s\n", res.Recorded)
		}
	}

	fmt.Fprintln(w)
	if summary.AllMatch {
		fmt.Fprintln(w, "✓ Every captured iteration reproduced its recorded outcome")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay diverged from the journal")
	return NewExitError(ExitFailure, "replayed outcomes diverged from the journal")
}
