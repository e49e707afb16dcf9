package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/rivulet/internal/harness"
)

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>",
		Short: "Validate scenarios without running them",
		Long: `Parse scenario files strictly and compile their expressions without
running them. Faster than test for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	info, err := os.Stat(path)
	if err != nil {
		return commandError(formatter, ExitCommandError, ErrCodeNotFound, fmt.Sprintf("path not found: %s", path), nil)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = findScenarioFiles(path, "")
		if err != nil {
			return commandError(formatter, ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
		}
	}
	formatter.VerboseLog("Validating %d file(s)", len(files))

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, file := range files {
		s, err := harness.LoadScenario(file)
		if err != nil {
			result.Errors = append(result.Errors, ValidationIssue{File: file, Message: err.Error()})
			continue
		}
		for _, err := range harness.Lint(s) {
			result.Errors = append(result.Errors, ValidationIssue{File: file, Message: err.Error()})
		}
	}
	result.Valid = len(result.Errors) == 0

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result, ErrCodeLoadFailed, "validation failed"); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
	}

	w := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintf(w, "✓ %d scenario file(s) valid\n", result.Files)
		return nil
	}
	for _, issue := range result.Errors {
		fmt.Fprintf(w, "✗ %s: %s\n", issue.File, issue.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(result.Errors)))
}
