package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const validSpec = `
database: "lab"

predicate: looks: args: ["who"]

column: trial: args: [{name: "subject", kind: "nominal", values: ["kid", "adult"]}]
column: notes: type: "text"
`

const validDump = "(lab (VocabList looks(<who>) trial(<subject>) notes(<val>)) (ColumnList (trial) (notes)))"

// writeFile writes content to name under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout and stderr. No args means
// none, not os.Args.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const appendScenario = `name: append_cells
description: "Appending two cells and removing the first"
database: study
steps:
  - add_column: {name: trial, args: [subject, score]}
  - append_cell: {column: trial, onset: "00:00:01:000", offset: "00:00:02:000", values: "(kid, 3)"}
  - append_cell: {column: trial, onset: "00:00:03:000", offset: "00:00:04:000", values: "(adult, 7)"}
  - remove_cell: {column: trial, ord: 1}
assertions:
  - type: cell
    column: trial
    ord: 1
    expect: "(1, 00:00:03:000, 00:00:04:000, (adult, 7))"
`

const appendDump = "(study (VocabList trial(<subject>, <score>)) (ColumnList (trial (1, 00:00:03:000, 00:00:04:000, (adult, 7)))))"
