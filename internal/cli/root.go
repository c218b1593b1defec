// Package cli implements the salvage command-line interface: running
// batch scenarios, replaying journaled failures, validating scenario
// files, and dumping journal traces.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // journal path; ":memory:" keeps it process-local
}

// envDefaults are flag defaults sourced from the environment before
// flag parsing, so flags still win when given explicitly.
type envDefaults struct {
	Format   string `env:"SALVAGE_FORMAT" envDefault:"text"`
	Database string `env:"SALVAGE_DB" envDefault:":memory:"`
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the salvage CLI.
func NewRootCommand() *cobra.Command {
	defaults := envDefaults{}
	if err := env.Parse(&defaults); err != nil {
		defaults = envDefaults{Format: "text", Database: ":memory:"}
	}

	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "salvage",
		Short: "Salvage - batch execution recovery",
		Long:  "A toolkit for running fault-prone batches to completion and reproducing the iterations that failed.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", defaults.Format, "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaults.Database, "path to the journal database (\":memory:\" for process-local)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the CLI logger. Diagnostics go to the command's
// stderr so JSON output on stdout stays parseable.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
		Level: level,
	}))
}
