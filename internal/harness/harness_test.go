package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/store"
)

func intPtr(n int) *int { return &n }

func mustLoad(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func requirePass(t *testing.T, result *Result) {
	t.Helper()
	require.True(t, result.Pass, "scenario failed:\n%s", strings.Join(result.Errors, "\n"))
}

func TestGoldenScenarios(t *testing.T) {
	for _, name := range []string{"append_cells", "reference_mirror"} {
		t.Run(name, func(t *testing.T) {
			s := mustLoad(t, name)
			result, err := Run(s, WithLogger(zaptest.NewLogger(t)))
			require.NoError(t, err)
			requirePass(t, result)
			require.NoError(t, AssertGolden(t, s.Name, result))
		})
	}
}

func TestRunIsDeterministic(t *testing.T) {
	s := mustLoad(t, "append_cells")
	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, Snapshot(s.Name, first), Snapshot(s.Name, second))
}

func TestRunWithSpec(t *testing.T) {
	for _, name := range []string{"study_edits", "remove_predicate"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(mustLoad(t, name))
			require.NoError(t, err)
			requirePass(t, result)
		})
	}
}

func TestRunSpecEventsComeFirst(t *testing.T) {
	result, err := Run(mustLoad(t, "remove_predicate"))
	require.NoError(t, err)
	requirePass(t, result)

	require.NotEmpty(t, result.Trace)
	kinds := make([]string, 0, 3)
	for _, ev := range result.Trace {
		if ev.Token != "cascade-1" {
			break
		}
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{"vocab_added", "vocab_added", "column_added"}, kinds)
}

func TestRunStepOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{
			name: "expected error matches",
			steps: []Step{
				{RemoveColumn: &NameRef{Name: "missing"}, ExpectError: string(ir.CodeNotFound)},
			},
		},
		{
			name: "expected error but success",
			steps: []Step{
				{AddColumn: &ir.ColumnDecl{Name: "trial"}, ExpectError: string(ir.CodeDuplicateName)},
			},
			wantErr: "steps[0] add_column: expected error DUPLICATE_NAME, got success",
		},
		{
			name: "wrong error code",
			steps: []Step{
				{AddColumn: &ir.ColumnDecl{Name: "trial"}},
				{AddColumn: &ir.ColumnDecl{Name: "trial"}, ExpectError: string(ir.CodeNotFound)},
			},
			wantErr: "steps[1] add_column: expected error NOT_FOUND",
		},
		{
			name: "unexpected error",
			steps: []Step{
				{AppendCell: &CellEdit{Column: "nowhere"}},
			},
			wantErr: "steps[0] append_cell:",
		},
		{
			name: "empty step",
			steps: []Step{
				{},
			},
			wantErr: "step has no action",
		},
		{
			name: "unknown argument",
			steps: []Step{
				{AddColumn: &ir.ColumnDecl{Name: "trial", Args: []ir.ArgDecl{{Name: "a"}}}},
				{EditVocab: &EditVocab{Name: "trial", Ops: []EditOp{{Delete: "b"}}}},
			},
			wantErr: "trial has no argument <b>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(&Scenario{
				Name:       tt.name,
				Steps:      tt.steps,
				Assertions: []Assertion{{Type: AssertConsistent}},
			})
			require.NoError(t, err)
			if tt.wantErr == "" {
				requirePass(t, result)
				return
			}
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRunEditVocab(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "edit",
		Steps: []Step{
			{AddColumn: &ir.ColumnDecl{Name: "trial", Args: []ir.ArgDecl{{Name: "a"}, {Name: "b"}, {Name: "c"}}}},
			{AppendCell: &CellEdit{Column: "trial", Values: "(1, 2, 3)"}},
			{EditVocab: &EditVocab{Name: "trial", Rename: "session", Ops: []EditOp{
				{Move: &MoveOp{Arg: "c", To: 0}},
				{Delete: "b"},
				{Insert: &InsertOp{At: 1, Arg: ir.ArgDecl{Name: "d", Kind: "integer"}}},
				{RenameArg: &RenameOp{From: "a", To: "first"}},
			}}},
		},
		Assertions: []Assertion{
			{Type: AssertVocab, Name: "session", Expect: "session(<c>, <d>, <first>)"},
			{Type: AssertCell, Column: "session", Ord: 1, Expect: "(1, 00:00:00:000, 00:00:00:000, (3, <d>, 1))"},
			{Type: AssertConsistent},
		},
	})
	require.NoError(t, err)
	requirePass(t, result)
}

func TestRunTemporalOrdering(t *testing.T) {
	on := true
	result, err := Run(&Scenario{
		Name: "temporal",
		Steps: []Step{
			{AddColumn: &ir.ColumnDecl{Name: "trial", Type: "integer"}},
			{AppendCell: &CellEdit{Column: "trial", Onset: "00:00:05:000", Values: "(5)"}},
			{AppendCell: &CellEdit{Column: "trial", Onset: "00:00:01:000", Values: "(1)"}},
			{SetTemporalOrdering: &on},
			{InsertCell: &CellEdit{Column: "trial", Ord: 1, Onset: "00:00:03:000", Values: "(3)"}},
		},
		Assertions: []Assertion{
			{Type: AssertCell, Column: "trial", Ord: 1, Expect: "(1, 00:00:01:000, 00:00:00:000, (1))"},
			{Type: AssertCell, Column: "trial", Ord: 2, Expect: "(2, 00:00:03:000, 00:00:00:000, (3))"},
			{Type: AssertCell, Column: "trial", Ord: 3, Expect: "(3, 00:00:05:000, 00:00:00:000, (5))"},
		},
	})
	require.NoError(t, err)
	requirePass(t, result)
}

func TestRunAssertionFailures(t *testing.T) {
	result, err := Run(&Scenario{
		Name: "failing",
		Steps: []Step{
			{AddColumn: &ir.ColumnDecl{Name: "trial", Args: []ir.ArgDecl{{Name: "a"}}}},
			{AppendCell: &CellEdit{Column: "trial", Values: "(x)"}},
		},
		Assertions: []Assertion{
			{Type: AssertCell, Column: "trial", Ord: 1, Expect: "(1, 00:00:00:000, 00:00:00:000, (y))"},
			{Type: AssertCell, Column: "trial", Ord: 2, Expect: "(2, 00:00:00:000, 00:00:00:000, (y))"},
			{Type: AssertVocab, Name: "trial", Expect: "trial(<b>)"},
			{Type: AssertEventCount, Count: intPtr(9)},
			{Type: AssertEventCount, Kind: "cell_inserted", Count: intPtr(1)},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "assertions[0]: Assertion failed: cell")
	assert.Contains(t, result.Errors[0], "Actual: trial[1] = (1, 00:00:00:000, 00:00:00:000, (x))")
	assert.Contains(t, result.Errors[1], "assertions[1]")
	assert.Contains(t, result.Errors[2], "Actual: trial(<a>)")
	assert.Contains(t, result.Errors[3], "Actual: 3 events")
}

func TestRunWithJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s := mustLoad(t, "append_cells")

	var traces [][]TraceEvent
	for range 2 {
		result, err := Run(s, WithJournal(path), WithContext(context.Background()))
		require.NoError(t, err)
		requirePass(t, result)
		traces = append(traces, result.Trace)
	}

	for _, trace := range traces {
		require.Len(t, trace, 5)
		assert.NotContains(t, trace[0].Token, "cascade-")
	}
	assert.NotEqual(t, traces[0][0].Token, traces[1][0].Token)

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	cascades, err := st.ReadCascades(context.Background())
	require.NoError(t, err)
	assert.Len(t, cascades, 8)
	for _, c := range cascades {
		assert.Equal(t, "study", c.Database)
	}
}

func TestRunBadSpec(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`column: "1x": {}`), 0o644))

	_, err := Run(&Scenario{Name: "bad", Specs: []string{path}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load spec")
}
