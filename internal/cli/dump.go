package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/db"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/format"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	TemporalOrdering bool
	TicksPerSecond   int64
}

// DumpResult is the JSON payload of the dump command.
type DumpResult struct {
	Database string `json:"database"`
	Dump     string `json:"dump"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <specs>",
		Short: "Print the database a vocabulary declares",
		Long: `Build a database from CUE vocabulary declarations and print its
textual rendering:

  (name (VocabList p(<a>, <b>) ...) (ColumnList (col (1, onset, offset, (v1, v2))) ...))`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.TemporalOrdering, "temporal-ordering", false, "keep cells sorted by onset")
	cmd.Flags().Int64Var(&opts.TicksPerSecond, "ticks-per-second", 0, "override the declared tick rate")

	return cmd
}

func runDump(opts *DumpOptions, specs string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	dbOpts := []db.Option{
		db.WithLogger(opts.Logger()),
		db.WithTemporalOrdering(opts.TemporalOrdering),
	}
	if opts.TicksPerSecond > 0 {
		dbOpts = append(dbOpts, db.WithTicksPerSecond(opts.TicksPerSecond))
	}

	d, err := buildDatabase(specs, dbOpts...)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "building database", err)
	}
	out, err := format.Database(d)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "rendering database", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(DumpResult{Database: d.Name(), Dump: out})
	}
	fmt.Fprintln(formatter.Writer, out)
	return nil
}
