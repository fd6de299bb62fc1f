package cli

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "DVDB"

// Configuration keys and the flags that set them. Dashes in flag names
// become underscores in keys and environment variables.
var configKeys = map[string]string{
	"verbose":           "verbose",
	"format":            "format",
	"log_level":         "log-level",
	"journal":           "journal",
	"temporal_ordering": "temporal-ordering",
	"ticks_per_second":  "ticks-per-second",
}

// resolve layers the config file, the environment and the command's flags
// into one viper instance and writes the winning values back into the
// flag destinations.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config %s", o.ConfigFile)
		}
	}

	flags := cmd.Flags()
	for key, name := range configKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "binding flag %s", name)
		}
		if err := applyKey(v, key, f); err != nil {
			return err
		}
	}
	o.v = v
	return nil
}

// applyKey stores the resolved value of key into flag f, so commands read
// plain option fields.
func applyKey(v *viper.Viper, key string, f *pflag.Flag) error {
	if f.Changed || !v.IsSet(key) {
		return nil
	}
	if err := f.Value.Set(v.GetString(key)); err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	return nil
}

// newLogger builds the CLI's logger: a development logger when verbose,
// otherwise a production logger at level. Both write to stderr.
func newLogger(verbose bool, level string) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
