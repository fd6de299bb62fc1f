package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dvdb", cmd.Use)
	assert.Contains(t, cmd.Long, "cascades")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "validate", "dump", "run", "test", "history"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "warn", level.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"compile", "output", ""},
		{"dump", "temporal-ordering", "false"},
		{"dump", "ticks-per-second", "0"},
		{"run", "journal", ""},
		{"test", "update", "false"},
		{"test", "filter", ""},
		{"history", "journal", ""},
		{"history", "cascade", ""},
		{"history", "element", "0"},
	}
	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "vocab.cue", validSpec)

	_, _, err := execute(NewRootCommand(), "validate", spec, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFormatFromEnvironment(t *testing.T) {
	t.Setenv("DVDB_FORMAT", "json")
	spec := writeFile(t, t.TempDir(), "vocab.cue", validSpec)

	out, _, err := execute(NewRootCommand(), "validate", spec)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
}

func TestFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("DVDB_FORMAT", "json")
	spec := writeFile(t, t.TempDir(), "vocab.cue", validSpec)

	out, _, err := execute(NewRootCommand(), "validate", spec, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "All specs valid")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "vocab.cue", validSpec)
	config := writeFile(t, dir, "dvdb.yaml", "format: json\nlog_level: error\n")

	out, _, err := execute(NewRootCommand(), "dump", spec, "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, `"database": "lab"`)
}

func TestConfigFileMissing(t *testing.T) {
	spec := writeFile(t, t.TempDir(), "vocab.cue", validSpec)

	_, _, err := execute(NewRootCommand(), "dump", spec, "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestInvalidLogLevel(t *testing.T) {
	spec := writeFile(t, t.TempDir(), "vocab.cue", validSpec)

	_, _, err := execute(NewRootCommand(), "dump", spec, "--log-level", "chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
