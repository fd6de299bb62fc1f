package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Cascade string
	Element int64
}

// HistoryResult holds what the history command read. Exactly one of the
// fields is filled, depending on the flags.
type HistoryResult struct {
	Cascades []store.Cascade `json:"cascades,omitempty"`
	Cascade  *store.Cascade  `json:"cascade,omitempty"`
	Events   []store.Event   `json:"events,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Read back journaled cascades",
		Long: `Read the change journal written by "dvdb run --journal".

Without filters every cascade is listed. --cascade shows the change events
of one cascade in sequence order; --element shows every event that touched
an element (for a column, its cells too).

Examples:
  dvdb history --journal ./journal.db
  dvdb history --journal ./journal.db --cascade cascade-2
  dvdb history --journal ./journal.db --element 4 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Cascade, "cascade", "", "cascade token to show")
	cmd.Flags().Int64Var(&opts.Element, "element", 0, "element id to show")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Journal == "" {
		return NewExitError(ExitCommandError, "a journal is required (--journal or DVDB_JOURNAL)")
	}
	if opts.Cascade != "" && opts.Element != 0 {
		return NewExitError(ExitCommandError, "--cascade and --element are mutually exclusive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Journal)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	result, err := readHistory(ctx, st, opts)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(string(ir.CodeNotFound), fmt.Sprintf("no cascade %q", opts.Cascade), nil)
		return WrapExitError(ExitFailure, "cascade not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputHistoryText(formatter, opts, result)
	return nil
}

func readHistory(ctx context.Context, st *store.Store, opts *HistoryOptions) (HistoryResult, error) {
	var result HistoryResult
	var err error
	switch {
	case opts.Cascade != "":
		var c store.Cascade
		if c, err = st.ReadCascade(ctx, opts.Cascade); err != nil {
			return result, err
		}
		result.Cascade = &c
		result.Events, err = st.ReadEvents(ctx, opts.Cascade)
	case opts.Element != 0:
		result.Events, err = st.ReadElementHistory(ctx, ir.ID(opts.Element))
	default:
		result.Cascades, err = st.ReadCascades(ctx)
	}
	return result, err
}

func outputHistoryText(formatter *OutputFormatter, opts *HistoryOptions, result HistoryResult) {
	w := formatter.Writer
	switch {
	case opts.Cascade != "":
		c := result.Cascade
		fmt.Fprintf(w, "Cascade %s (%s) seq %d..%s\n\n", c.Token, c.Database, c.BeginSeq, endSeq(c))
		writeEvents(formatter, result.Events)
	case opts.Element != 0:
		fmt.Fprintf(w, "Element %d: %d event(s)\n\n", opts.Element, len(result.Events))
		writeEvents(formatter, result.Events)
	default:
		if len(result.Cascades) == 0 {
			fmt.Fprintln(w, "No cascades journaled.")
			return
		}
		for _, c := range result.Cascades {
			fmt.Fprintf(w, "%s  %s  seq %d..%s\n", c.Token, c.Database, c.BeginSeq, endSeq(&c))
		}
	}
}

func writeEvents(formatter *OutputFormatter, events []store.Event) {
	for _, ev := range events {
		fmt.Fprintf(formatter.Writer, "  [%d] %-14s element=%d column=%d\n", ev.Seq, ev.KindName, ev.ElementID, ev.ColumnID)
		formatter.VerboseLog("    %s", ev.Payload)
	}
}

// endSeq renders the closing sequence number, or "open" for a cascade
// that never closed.
func endSeq(c *store.Cascade) string {
	if c.EndSeq == 0 {
		return "open"
	}
	return strconv.FormatInt(c.EndSeq, 10)
}
