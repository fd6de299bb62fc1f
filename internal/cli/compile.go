package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	PredicateCount int
	ColumnCount    int
	TotalArgs      int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs>",
		Short: "Compile CUE vocabulary declarations to JSON",
		Long: `Compile CUE vocabulary declarations to their JSON form.

<specs> is a .cue file or a directory of them, unified into one value.
Predicates and columns are validated before anything is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specs string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, errs := LoadSpecs(specs)
	if len(errs) > 0 {
		return outputLoadErrors(formatter, "Compilation failed", errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, specs)

	spec := result.Spec
	for _, p := range spec.Predicates {
		formatter.VerboseLog("Compiled predicate: %s", p.Name)
	}
	for _, c := range spec.Columns {
		formatter.VerboseLog("Compiled column: %s", c.Name)
	}

	if opts.Output != "" {
		if err := writeSpecToFile(spec, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(spec)
	}

	stats := calculateStats(spec)
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d predicate(s), %d column(s)\n\n", stats.PredicateCount, stats.ColumnCount)
	if len(spec.Predicates) > 0 {
		fmt.Fprintln(w, "Predicates:")
		for _, p := range spec.Predicates {
			fmt.Fprintf(w, "  %s: %d argument(s)\n", p.Name, len(p.Args))
		}
		fmt.Fprintln(w)
	}
	if len(spec.Columns) > 0 {
		fmt.Fprintln(w, "Columns:")
		for _, c := range spec.Columns {
			fmt.Fprintf(w, "  %s: %s, %d argument(s)\n", c.Name, c.Type, len(c.Args))
		}
		fmt.Fprintln(w)
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote vocabulary to %s\n", opts.Output)
	}
	return nil
}

func calculateStats(spec *ir.VocabSpec) CompilationStats {
	stats := CompilationStats{
		PredicateCount: len(spec.Predicates),
		ColumnCount:    len(spec.Columns),
	}
	for _, p := range spec.Predicates {
		stats.TotalArgs += len(p.Args)
	}
	for _, c := range spec.Columns {
		stats.TotalArgs += len(c.Args)
	}
	return stats
}

// outputLoadErrors reports every load or validation error and returns the
// command-level exit error.
func outputLoadErrors(formatter *OutputFormatter, headline string, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = CLIError{Code: errorCode(err), Message: loadMessage(err)}
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintf(w, "✗ %s\n\n", headline)
		for i, err := range errs {
			var loadErr *LoadError
			if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
				fmt.Fprintf(w, "%s:%d:%d\n", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
			}
			fmt.Fprintf(w, "  %s: %s\n\n", cliErrors[i].Code, cliErrors[i].Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s with %d error(s)", headline, len(errs)))
}

func loadMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	return err.Error()
}

// writeSpecToFile writes the compiled vocabulary as indented JSON.
func writeSpecToFile(spec *ir.VocabSpec, filename string) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling vocabulary")
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}
