package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("E001", "compilation failed", map[string]string{"file": "vocab.cue"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("All specs valid"))
	require.NoError(t, formatter.Error("E005", "specs path not found", "hidden unless verbose"))
	assert.Equal(t, "All specs valid\nError [E005]: specs path not found\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E005", "specs path not found", "shown"))
	assert.Contains(t, buf.String(), "Details: shown")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("quiet %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("loud %d", 2)
	assert.Equal(t, "loud 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := errors.Wrap(WrapExitError(ExitFailure, "scenario failed", errors.New("cause")), "outer")
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "outer: scenario failed: cause", wrapped.Error())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "E005", errorCode(&LoadError{Code: ErrCodeNotFound, Message: "x"}))
	assert.Equal(t, "NOT_EMPTY", errorCode(ir.Errorf(ir.CodeNotEmpty, "db.remove_column", "still has cells")))
	assert.Equal(t, ErrCodeGeneric, errorCode(errors.New("plain")))
}
