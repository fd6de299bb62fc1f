package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/db"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs>",
		Short: "Validate vocabulary declarations",
		Long: `Validate CUE vocabulary declarations without writing anything.

Runs the declaration rules (names, argument lists, kinds, ranges, nominal
values, predicate subranges), then builds a database from the declarations
and runs its self-check.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specs string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, errs := LoadSpecs(specs)
	if result == nil {
		return outputLoadErrors(formatter, "Validation failed", errs)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, specs)

	if len(errs) == 0 {
		formatter.VerboseLog("Building database %q", result.Spec.Database)
		d, err := db.FromSpec(result.Spec, db.WithLogger(opts.Logger()))
		if err == nil {
			err = d.Check()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	return nil
}

// outputValidationErrors reports declaration errors. Unlike load errors
// these are failures of the input, not of the command.
func outputValidationErrors(formatter *OutputFormatter, errs []error) error {
	result := ValidationResult{Errors: make([]CLIError, len(errs))}
	for i, err := range errs {
		result.Errors[i] = CLIError{Code: errorCode(err), Message: loadMessage(err)}
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &result.Errors[0],
		}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
		}
		fmt.Fprintln(w)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// buildDatabase loads the vocabulary at specs and builds a database from
// it.
func buildDatabase(specs string, opts ...db.Option) (*db.Database, error) {
	spec, err := loadSpec(specs)
	if err != nil {
		return nil, err
	}
	d, err := db.FromSpec(spec, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "building database from %s", specs)
	}
	return d, nil
}
