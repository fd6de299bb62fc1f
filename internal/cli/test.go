package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
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
		Use:   "test <scenarios>",
		Short: "Run scenario conformance tests",
		Long: `Run every YAML scenario in a directory (or a single scenario file)
and check its assertions.

A scenario named X.yaml with a golden/X.golden file next to it must also
reproduce that snapshot of dump and event trace byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  dvdb test ./scenarios
  dvdb test ./scenarios --filter "retype-*"
  dvdb test ./scenarios --update
  dvdb test ./scenarios/retype.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios path not found: %s", path))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "reading scenarios path", err)
	}

	var files []string
	if info.IsDir() {
		if files, err = findScenarioFiles(path, opts.Filter); err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
	} else {
		files = []string{path}
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenario(file, opts)
		if opts.Format != "json" {
			fmt.Fprintf(formatter.Writer, "%s %s\n", mark(sr.Pass), sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds all YAML scenario files under dir.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return errors.Wrap(err, "invalid filter pattern")
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes one scenario file and checks it against its golden
// snapshot when one exists.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(scenario, harness.WithLogger(opts.Logger()))
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	sr := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	snapshot := harness.Snapshot(scenario.Name, result)
	goldenPath := goldenFilePath(file)

	if opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return sr
	}

	want, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(want, snapshot):
		sr.Pass = false
		sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
	}
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, snapshot []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create golden directory")
	}
	if err := os.WriteFile(path, snapshot, 0o644); err != nil {
		return errors.Wrap(err, "failed to write golden file")
	}
	return nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{Status: status(result.Failed == 0), Data: result}
	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}
	if err := formatter.encode(response); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
