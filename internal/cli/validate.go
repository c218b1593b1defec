package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/salvage/internal/scenario"
)

// FileValidation holds the validation result for one scenario file.
type FileValidation struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results across all files.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema.

Checks YAML syntax, required fields, field types, and rejects unknown
keys. Nothing is executed and nothing is journaled.

Exit codes:
  0 - All files valid
  1 - At least one file failed validation
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("validating %s", path)

		fv := FileValidation{Path: path, Valid: true}
		if _, err := scenario.Load(path); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_SCENARIO",
				Message: "scenario validation failed",
			}
		}
		if err := writeJSON(formatter.Writer, resp); err != nil {
			return err
		}
		if !result.Valid {
			return NewExitError(ExitFailure, "scenario validation failed")
		}
		return nil
	}

	// Text format
	invalid := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", fv.Path)
			continue
		}
		invalid++
		fmt.Fprintf(formatter.Writer, "✗ %s\n", fv.Path)
		fmt.Fprintf(formatter.Writer, "    %s\n", fv.Error)
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d file(s)", invalid))
	}
	return nil
}
