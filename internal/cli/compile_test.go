package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

func TestCompileValidSpecs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vocab.cue", validSpec)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 predicate(s), 2 column(s)")
	assert.Contains(t, out, "looks: 1 argument(s)")
	assert.Contains(t, out, "trial: matrix, 1 argument(s)")
	assert.Contains(t, out, "notes: text, 0 argument(s)")
}

func TestCompileValidSpecsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vocab.cue", validSpec)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ir.VocabSpec `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "lab", resp.Data.Database)
	require.Len(t, resp.Data.Columns, 2)
	assert.Equal(t, []string{"kid", "adult"}, resp.Data.Columns[0].Args[0].Values)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := t.TempDir()
	spec := writeFile(t, dir, "vocab.cue", validSpec)
	output := filepath.Join(t.TempDir(), "vocab.json")

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), spec, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote vocabulary to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var got ir.VocabSpec
	require.NoError(t, json.Unmarshal(data, &got))

	want := ir.VocabSpec{
		Database:   "lab",
		Predicates: []ir.PredicateDecl{{Name: "looks", Args: []ir.ArgDecl{{Name: "who"}}}},
		Columns: []ir.ColumnDecl{
			{Name: "trial", Type: "matrix", Args: []ir.ArgDecl{{Name: "subject", Kind: "nominal", Values: []string{"kid", "adult"}}}},
			{Name: "notes", Type: "text"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("written vocabulary mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		path  string
		code  string
	}{
		{name: "missing path", path: "/nonexistent/specs", code: ErrCodeNotFound},
		{name: "empty directory", files: map[string]string{"README": "x"}, code: ErrCodeNoFiles},
		{name: "syntax error", files: map[string]string{"vocab.cue": `database: "lab`}, code: ErrCodeLoadFailed},
		{name: "bad column name", files: map[string]string{"vocab.cue": `column: "bad(name)": {}`}, code: "E104"},
		{name: "unknown predicate", files: map[string]string{"vocab.cue": `column: c: args: [{name: "p", kind: "predicate", predicates: ["nope"]}]`}, code: "E112"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			path := tt.path
			if path == "" {
				path = dir
			}

			out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileInvalidSpecText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vocab.cue", `
		column: "bad(name)": {}
		column: c: {type: "integer", args: ["a"]}
	`)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "E104")
	assert.Contains(t, out, "E106")
	assert.Contains(t, err.Error(), "2 error(s)")
}

func TestCompileVerboseOutput(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", `predicate: looks: args: ["who"]`)
	writeFile(t, dir, "b.cue", `column: trial: args: ["x"]`)

	out, errOut, err := execute(NewCompileCommand(&RootOptions{Format: "text", Verbose: true}), dir)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Found 2 CUE file(s)")
	assert.Contains(t, errOut, "Compiled predicate: looks")
	assert.Contains(t, errOut, "Compiled column: trial")
	assert.NotContains(t, out, "Found")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "")
	writeFile(t, dir, "sub/b.cue", "")
	writeFile(t, dir, "c.txt", "")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeLoadFailed, MapFieldToErrorCode("cue", ErrCodeBuildFailed))
	assert.Equal(t, ErrCodeBuildFailed, MapFieldToErrorCode("column.trial.args[0]", ErrCodeBuildFailed))
}

func TestCalculateStats(t *testing.T) {
	stats := calculateStats(&ir.VocabSpec{
		Predicates: []ir.PredicateDecl{{Name: "p", Args: []ir.ArgDecl{{Name: "a"}, {Name: "b"}}}},
		Columns:    []ir.ColumnDecl{{Name: "c", Args: []ir.ArgDecl{{Name: "x"}}}, {Name: "r", Type: "reference"}},
	})
	assert.Equal(t, CompilationStats{PredicateCount: 1, ColumnCount: 2, TotalArgs: 3}, stats)
}
