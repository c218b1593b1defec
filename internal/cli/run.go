package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/salvage/internal/engine"
	"github.com/roach88/salvage/internal/journal"
	"github.com/roach88/salvage/internal/runlog"
	"github.com/roach88/salvage/internal/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	VerifyReplay bool

	// Tokens allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens engine.TokenGenerator
}

// RunSummary is the run command's output payload.
type RunSummary struct {
	Token      string         `json:"token"`
	Scenario   string         `json:"scenario"`
	Iterations int            `json:"iterations"`
	Succeeded  int            `json:"succeeded"`
	Failed     []runlog.Entry `json:"failed"`
	Results    []any          `json:"results"`

	// Diverged lists iterations whose replay did not reproduce the
	// recorded outcome. Only populated with --verify-replay.
	Diverged []int `json:"diverged,omitempty"`
	Verified bool  `json:"verified,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a batch scenario to completion",
		Long: `Run a batch scenario, intercepting per-iteration faults.

Every iteration runs whether or not earlier ones failed. Failed
iterations are collected with their iteration index and error message;
successful results keep their original positions. Outcomes and seed
snapshots are journaled under a fresh run token.

Failed iterations do not affect the exit code: completing the batch
and reporting the failures is the command's job.

Exit codes:
  0 - Batch completed (failed iterations are data, not errors)
  1 - Replay verification failed (--verify-replay only)
  2 - Command error (bad scenario file, journal not writable, etc.)

Examples:
  salvage run scenario.yaml
  salvage run --db ./salvage.db scenario.yaml --verbose
  salvage run --verify-replay --format json scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.VerifyReplay, "verify-replay", false, "re-execute captured iterations and verify they reproduce")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(cmd, opts.Verbose)

	sc, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.Error("closing journal", "error", closeErr)
		}
	}()

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Tokens != nil {
		engineOpts = append(engineOpts, engine.WithTokenGenerator(opts.Tokens))
	}
	eng := engine.New(j, engineOpts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rep, err := eng.Run(ctx, sc)
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	summary := RunSummary{
		Token:      rep.Token,
		Scenario:   rep.Scenario,
		Iterations: rep.Iterations,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
		Results:    rep.Results,
	}

	if opts.VerifyReplay {
		diverged, err := eng.VerifyReplay(rep)
		if err != nil {
			return WrapExitError(ExitCommandError, "replay verification failed to run", err)
		}
		summary.Diverged = diverged
		summary.Verified = len(diverged) == 0
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if opts.VerifyReplay && !summary.Verified {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_REPLAY",
				Message: "replay diverged from recorded outcomes",
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
		if opts.VerifyReplay && !summary.Verified {
			return NewExitError(ExitFailure, "replay diverged from recorded outcomes")
		}
		return nil
	}

	return outputRunText(cmd, summary, opts)
}

func outputRunText(cmd *cobra.Command, summary RunSummary, opts *RunOptions) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Run %s: scenario %q\n", summary.Token, summary.Scenario)
	fmt.Fprintf(w, "  Iterations: %d  Succeeded: %d  Failed: %d\n",
		summary.Iterations, summary.Succeeded, len(summary.Failed))

	for _, entry := range summary.Failed {
		fmt.Fprintf(w, "  ✗ iteration %d: %s\n", entry.Iteration, entry.Err)
	}

	if opts.Verbose {
		for i, v := range summary.Results {
			if v == nil {
				continue
			}
			fmt.Fprintf(w, "  iteration %d = %v\n", i+1, v)
		}
	}

	if opts.VerifyReplay {
		if summary.Verified {
			fmt.Fprintln(w, "✓ All captured iterations replay identically")
			return nil
		}
		fmt.Fprintf(w, "✗ Replay diverged at iterations %v\n", summary.Diverged)
		return NewExitError(ExitFailure, "replay diverged from recorded outcomes")
	}

	return nil
}
