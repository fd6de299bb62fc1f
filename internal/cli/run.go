package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one editing scenario",
		Long: `Run a YAML editing scenario against a fresh database and print the
final dump and the journaled change events.

With --journal the cascades are appended to a SQLite journal file, where
the history command can read them back.

Example:
  dvdb run ./scenarios/retype.yaml
  dvdb run ./scenarios/retype.yaml --journal ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to a SQLite journal (default: in memory)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "loading scenario", err)
	}
	formatter.VerboseLog("Running scenario %s (%d step(s))", scenario.Name, len(scenario.Steps))

	runOpts := []harness.Option{harness.WithLogger(opts.Logger())}
	if opts.Journal != "" {
		runOpts = append(runOpts, harness.WithJournal(opts.Journal))
	}
	if cmd.Context() != nil {
		runOpts = append(runOpts, harness.WithContext(cmd.Context()))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "running scenario", err)
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{Status: status(result.Pass), Data: result}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "%s %s\n\n", mark(result.Pass), scenario.Name)
		fmt.Fprintln(w, result.Dump)
		fmt.Fprintln(w)
		for _, ev := range result.Trace {
			fmt.Fprintf(w, "  [%d] %s %s %d\n", ev.Seq, ev.Token, ev.Kind, ev.ElementID)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(w, "\n  %s\n", e)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func status(pass bool) string {
	if pass {
		return "ok"
	}
	return "error"
}

func mark(pass bool) string {
	if pass {
		return "✓"
	}
	return "✗"
}
