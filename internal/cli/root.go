package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands. The resolved values
// come from flags, DVDB_ environment variables and the optional config
// file, in that order of precedence.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogLevel   string
	ConfigFile string

	v   *viper.Viper
	log *zap.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dvdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dvdb",
		Short: "dvdb - coding database toolkit",
		Long: `A toolkit for coding databases: vocabularies of predicates and
columns, cells of observations, and the cascades of changes that keep
them consistent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.resolve(cmd); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			log, err := newLogger(opts.Verbose, opts.LogLevel)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid log level", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// Logger returns the logger built for this invocation. Commands built
// without a root command log nowhere.
func (o *RootOptions) Logger() *zap.Logger {
	if o.log == nil {
		return zap.NewNop()
	}
	return o.log
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
