package cli

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/rivulet/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern on the file name)
	Parallel  int    // scenarios run at once
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// Golden comparison outcomes.
const (
	GoldenMatch    = "match"
	GoldenMismatch = "mismatch"
	GoldenUpdated  = "updated"
	GoldenMissing  = "missing"
)

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run every scenario file under a directory, check its expectations
and compare its trace with a golden file when one exists.

Golden files are named after the scenario file, keeping its path relative
to <scenarios-dir>, and live in <scenarios-dir>/golden unless --golden says
otherwise. --update never overwrites a golden file with the trace of a
scenario whose expectations fail.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad filter, etc.)

Examples:
  rivulet test ./scenarios
  rivulet test ./scenarios --filter "batch-*"
  rivulet test ./scenarios --update
  rivulet test ./scenarios --parallel 8 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", runtime.GOMAXPROCS(0), "number of scenarios run at once")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return commandError(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}
	if opts.Parallel < 1 {
		return commandError(formatter, ExitCommandError, ErrCodeGeneric, "--parallel must be at least 1", nil)
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return commandError(formatter, ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}

	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(scenariosDir, "golden")
	}
	goldenPaths, err := goldenFilePaths(scenariosDir, goldenDir, files)
	if err != nil {
		return commandError(formatter, ExitCommandError, ErrCodeGeneric, "conflicting golden files", err)
	}
	formatter.VerboseLog("Running %d scenario(s), %d at a time", len(files), opts.Parallel)

	results := make([]ScenarioResult, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(opts.Parallel)
	for i, file := range files {
		g.Go(func() error {
			results[i] = runScenario(ctx, file, goldenPaths[i], opts, logger)
			return nil
		})
	}
	_ = g.Wait()

	result := TestResult{Scenarios: results, Total: len(results)}
	for _, r := range results {
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.JSON() {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files under dir, in lexical
// order.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// goldenFilePaths maps each scenario file to its golden file: the file's
// path relative to scenariosDir with a .golden extension, under goldenDir.
// Two files that would share a golden file are an error.
func goldenFilePaths(scenariosDir, goldenDir string, files []string) ([]string, error) {
	paths := make([]string, len(files))
	owners := make(map[string]string, len(files))
	for i, file := range files {
		rel, err := filepath.Rel(scenariosDir, file)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(goldenDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".golden")
		if other, ok := owners[path]; ok {
			return nil, fmt.Errorf("%s and %s both map to %s", other, file, path)
		}
		owners[path] = file
		paths[i] = path
	}
	return paths, nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(ctx context.Context, file, goldenPath string, opts *TestOptions, logger *slog.Logger) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}
	if err := ctx.Err(); err != nil {
		res.Errors = []string{fmt.Sprintf("not run: %v", err)}
		return res
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res
	}
	res.Name = scenario.Name

	result, err := harness.Run(scenario, harness.WithLogger(logger))
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}

	trace, err := result.Trace.Canonical()
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to encode trace: %v", err)}
		return res
	}

	update := opts.Update && len(result.Errors) == 0
	res.Golden, err = checkGolden(goldenPath, trace, update)
	if err != nil {
		res.Errors = []string{err.Error()}
		return res
	}

	res.Errors = result.Errors
	if opts.Update && !update {
		res.Errors = append(res.Errors, "golden file not updated: expectations failed")
	}
	if res.Golden == GoldenMismatch {
		res.Errors = append(res.Errors, "trace does not match golden file (run with --update to regenerate)")
	}
	res.Pass = len(res.Errors) == 0
	return res
}

// checkGolden compares trace with the golden file at path, or rewrites it
// when update is set. A missing golden file is not a failure.
func checkGolden(path string, trace []byte, update bool) (string, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return "", fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, trace, 0644); err != nil {
			return "", fmt.Errorf("failed to write golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GoldenMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(golden), bytes.TrimSpace(trace)) {
		return GoldenMismatch, nil
	}
	return GoldenMatch, nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(f *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return f.Success(result)
	}
	msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := f.Failure(result, ErrCodeFailed, msg); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	for _, r := range result.Scenarios {
		if r.Pass {
			suffix := ""
			if r.Golden == GoldenUpdated {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "✓ %s%s\n", r.Name, suffix)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.Name)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", strings.TrimRight(e, "\n"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
