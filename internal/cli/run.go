package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rivulet/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	StepLimit int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario on a virtual clock and print everything its output
stream delivered, then the outcome of its expectations.

Exit codes:
  0 - Expectations passed
  1 - One or more expectations failed
  2 - Command error (missing file, invalid scenario, runaway run)

Example:
  rivulet run ./scenarios/batch.yaml
  rivulet run ./scenarios/batch.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.StepLimit, "step-limit", 0, "maximum scheduler steps (0 uses the default)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return commandError(formatter, ExitCommandError, ErrCodeNotFound, "scenario file not found", err)
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return commandError(formatter, ExitCommandError, ErrCodeLoadFailed, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded scenario %s from %s", scenario.Name, path)

	runOpts := []harness.RunOption{harness.WithLogger(logger)}
	if opts.StepLimit > 0 {
		runOpts = append(runOpts, harness.WithStepLimit(opts.StepLimit))
	}
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return commandError(formatter, ExitCommandError, ErrCodeRunFailed, "failed to run scenario", err)
	}

	if formatter.JSON() {
		if result.Pass {
			return formatter.Success(result)
		}
		if err := formatter.Failure(result, ErrCodeFailed, "expectations failed"); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Fprintf(w, "  %s\n", scenario.Description)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, result.Trace.String())
	fmt.Fprintln(w)

	if !result.Pass {
		fmt.Fprintf(w, "✗ %s\n", scenario.Name)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(e, "\n"))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}

	fmt.Fprintf(w, "✓ %s\n", scenario.Name)
	return nil
}
