package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/propagate"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/testutil"
)

type fakeColumns map[string]ir.ID

func (c fakeColumns) ColumnNameOwner(name string) (ir.ID, bool) {
	id, ok := c[name]
	return id, ok
}

type fakeDeps struct {
	scripts   []*propagate.Script
	retargets []ir.ID
	renamed   []string
}

func (d *fakeDeps) Propagate(s *propagate.Script) error {
	d.scripts = append(d.scripts, s)
	return nil
}

func (d *fakeDeps) Retarget(id ir.ID) error {
	d.retargets = append(d.retargets, id)
	return nil
}

func (d *fakeDeps) Renamed(ve *ir.VocabElement) error {
	d.renamed = append(d.renamed, ve.Name)
	return nil
}

type fixture struct {
	x      *index.Index
	reg    *Registry
	deps   *fakeDeps
	cols   fakeColumns
	events []cascade.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{x: index.New(), deps: &fakeDeps{}, cols: fakeColumns{}}
	d := cascade.NewDispatcher(
		cascade.WithClock(testutil.NewDeterministicClock()),
		cascade.WithTokenGenerator(testutil.NewSequenceGenerator("c")),
	)
	d.RegisterExternal(cascade.HandlerFunc(func(ev cascade.Event) error {
		f.events = append(f.events, ev)
		return nil
	}))
	f.reg = New(f.x, d, WithNameSpace(f.cols), WithDependents(f.deps))
	return f
}

func (f *fixture) kinds() []string {
	var out []string
	for _, ev := range f.events {
		out = append(out, ev.Kind.String())
	}
	f.events = nil
	return out
}

func untyped(names ...string) []ir.FormalArg {
	out := make([]ir.FormalArg, len(names))
	for i, n := range names {
		out[i] = ir.NewFormalArg(n, ir.FargUntyped)
	}
	return out
}

func (f *fixture) addPredicate(t *testing.T, name string, args ...string) ir.ID {
	t.Helper()
	id, err := f.reg.Add(ir.NewPredicateElement(name, untyped(args...)...))
	require.NoError(t, err)
	return id
}

func TestAddAssignsIDs(t *testing.T) {
	f := newFixture(t)
	ve := ir.NewPredicateElement("pve0", untyped("<a>", "<b>")...)

	id, err := f.reg.Add(ve)
	require.NoError(t, err)
	assert.Equal(t, id, ve.ID)

	for _, farg := range ve.Fargs {
		require.True(t, farg.ID.Valid())
		stored, err := index.ResolveAs[*ir.FormalArg](f.x, farg.ID)
		require.NoError(t, err)
		assert.Equal(t, id, stored.VocabID)
	}
	assert.Equal(t, []string{"cascade_begin", "vocab_added", "cascade_end"}, f.kinds())
}

func TestAddRejectsWithoutMutation(t *testing.T) {
	f := newFixture(t)
	f.addPredicate(t, "pve0", "<a>")
	f.cols["trial"] = 50
	f.kinds()
	before := f.x.Len()

	tests := []struct {
		name string
		ve   *ir.VocabElement
		code ir.ErrorCode
	}{
		{"duplicate vocab name", ir.NewPredicateElement("pve0", untyped("<a>")...), ir.CodeDuplicateName},
		{"duplicate column name", ir.NewPredicateElement("trial", untyped("<a>")...), ir.CodeDuplicateName},
		{"space in predicate name", ir.NewPredicateElement("p ve", untyped("<a>")...), ir.CodeInvalidName},
		{"reserved char", ir.NewPredicateElement("p(", untyped("<a>")...), ir.CodeInvalidName},
		{"no arguments", ir.NewPredicateElement("pve1"), ir.CodeInvalidArgument},
		{"bad argument name", ir.NewPredicateElement("pve1", untyped("arg")...), ir.CodeInvalidName},
		{"repeated argument", ir.NewPredicateElement("pve1", untyped("<a>", "<a>")...), ir.CodeDuplicateName},
		{"text argument", ir.NewPredicateElement("pve1", ir.NewFormalArg("<t>", ir.FargText)), ir.CodeTypeMismatch},
		{"preassigned id", &ir.VocabElement{ID: 3, Name: "pve1", Kind: ir.VocabPredicate, Fargs: untyped("<a>")}, ir.CodeInvalidArgument},
		{"constraint mismatch", ir.NewPredicateElement("pve1", ir.FormalArg{Name: "<a>", Kind: ir.FargFloat, Constraint: ir.IntRange{Max: 1}}), ir.CodeTypeMismatch},
		{"unknown predicate in subrange", ir.NewPredicateElement("pve1", ir.FormalArg{Name: "<a>", Kind: ir.FargPredicate, Constraint: ir.PredicateSet{999}}), ir.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reg.Add(tt.ve)
			assert.Equal(t, tt.code, ir.CodeOf(err), "%v", err)
			assert.Equal(t, before, f.x.Len())
			assert.Empty(t, f.kinds())
		})
	}
}

func TestMatrixElementSharesNameWithOwnColumn(t *testing.T) {
	f := newFixture(t)
	f.cols["trial"] = 50

	ve := &ir.VocabElement{Name: "trial", Kind: ir.VocabMatrix, ColumnID: 50, MatrixType: ir.MatrixMatrix, Fargs: untyped("<a>")}
	_, err := f.reg.Add(ve)
	require.NoError(t, err)
	assert.False(t, ve.System)

	other := &ir.VocabElement{Name: "trial", Kind: ir.VocabMatrix, ColumnID: 51, MatrixType: ir.MatrixMatrix, Fargs: untyped("<a>")}
	_, err = f.reg.Add(other)
	assert.Equal(t, ir.CodeDuplicateName, ir.CodeOf(err))
}

func TestFixedShapeMatrixIsSystem(t *testing.T) {
	f := newFixture(t)
	ve := &ir.VocabElement{Name: "count", Kind: ir.VocabMatrix, ColumnID: 50, MatrixType: ir.MatrixInteger,
		Fargs: []ir.FormalArg{ir.NewFormalArg(ir.FixedArgName, ir.FargInteger)}}
	id, err := f.reg.Add(ve)
	require.NoError(t, err)
	assert.True(t, ve.System)

	got, err := f.reg.Get(id)
	require.NoError(t, err)
	got.AppendArg(ir.NewFormalArg("<more>", ir.FargInteger))
	assert.Equal(t, ir.CodeSystemElement, ir.CodeOf(f.reg.Replace(got)))
	assert.Equal(t, ir.CodeTypeMismatch, ir.CodeOf(f.reg.ReplaceSystem(got)))

	bad := &ir.VocabElement{Name: "n", Kind: ir.VocabMatrix, ColumnID: 51, MatrixType: ir.MatrixNominal, Fargs: untyped("<a>")}
	_, err = f.reg.Add(bad)
	assert.Equal(t, ir.CodeTypeMismatch, ir.CodeOf(err))
}

func TestReplaceRenameThenArgsAsTwoEdits(t *testing.T) {
	f := newFixture(t)
	id := f.addPredicate(t, "pve0", "<a>", "<b>")
	f.kinds()

	ve, err := f.reg.Get(id)
	require.NoError(t, err)
	ve.Name = "pve9"
	require.NoError(t, ve.DeleteArg(0))
	ve.AppendArg(ir.NewFormalArg("<c>", ir.FargInteger))
	require.NoError(t, f.reg.Replace(ve))

	assert.Equal(t, []string{"cascade_begin", "vocab_changed", "vocab_changed", "cascade_end"}, f.kinds())

	require.Len(t, f.deps.scripts, 1)
	s := f.deps.scripts[0]
	assert.Len(t, s.Deletions, 1)
	assert.Len(t, s.Insertions, 1)

	got, err := f.reg.GetByName("pve9")
	require.NoError(t, err)
	assert.Equal(t, "pve9(<b>, <c>)", got.Signature())
	assert.False(t, f.reg.ExistsName("pve0"))

	// the deleted argument is gone from the index, the inserted one is there
	assert.False(t, f.x.Contains(s.Deletions[0].FargID))
	assert.True(t, f.x.Contains(got.Fargs[1].ID))
}

func TestReplaceRenameOnlyDoesNotPropagate(t *testing.T) {
	f := newFixture(t)
	id := f.addPredicate(t, "pve0", "<a>")

	ve, err := f.reg.Get(id)
	require.NoError(t, err)
	ve.Fargs[0].Name = "<renamed>"
	require.NoError(t, f.reg.Replace(ve))
	assert.Empty(t, f.deps.scripts)

	got, err := f.reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "<renamed>", got.Fargs[0].Name)
	stored, err := index.ResolveAs[*ir.FormalArg](f.x, got.Fargs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "<renamed>", stored.Name)
}

func TestReplaceUnchangedIsNoop(t *testing.T) {
	f := newFixture(t)
	id := f.addPredicate(t, "pve0", "<a>")
	f.kinds()

	ve, err := f.reg.Get(id)
	require.NoError(t, err)
	require.NoError(t, f.reg.Replace(ve))
	assert.Empty(t, f.kinds())
}

func TestReplaceCallerErrors(t *testing.T) {
	f := newFixture(t)
	id := f.addPredicate(t, "pve0", "<a>")
	f.addPredicate(t, "pve1", "<a>")
	f.kinds()

	ve, err := f.reg.Get(id)
	require.NoError(t, err)

	missing := ve.Clone()
	missing.ID = 999
	assert.Equal(t, ir.CodeNotFound, ir.CodeOf(f.reg.Replace(missing)))

	kind := ve.Clone()
	kind.Kind = ir.VocabMatrix
	assert.Equal(t, ir.CodeKindMismatch, ir.CodeOf(f.reg.Replace(kind)))

	dup := ve.Clone()
	dup.Name = "pve1"
	assert.Equal(t, ir.CodeDuplicateName, ir.CodeOf(f.reg.Replace(dup)))

	foreign := ve.Clone()
	foreign.Fargs[0].ID = 12345
	assert.Equal(t, ir.CodeInvalidArgument, ir.CodeOf(f.reg.Replace(foreign)))

	assert.Empty(t, f.kinds())
	got, err := f.reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, ve, got)
}

func TestMatrixRenameNotifiesDependents(t *testing.T) {
	f := newFixture(t)
	f.cols["trial"] = 50
	ve := &ir.VocabElement{Name: "trial", Kind: ir.VocabMatrix, ColumnID: 50, MatrixType: ir.MatrixMatrix, Fargs: untyped("<a>")}
	id, err := f.reg.Add(ve)
	require.NoError(t, err)

	got, err := f.reg.Get(id)
	require.NoError(t, err)
	got.Name = "session"
	require.NoError(t, f.reg.Replace(got))
	assert.Equal(t, []string{"session"}, f.deps.renamed)
}

func TestRemovePredicate(t *testing.T) {
	f := newFixture(t)
	gone := f.addPredicate(t, "gone", "<a>")
	keep := f.addPredicate(t, "keep", "<a>")

	restricted := ir.NewPredicateElement("holder", ir.FormalArg{
		Name: "<p>", Kind: ir.FargPredicate, Constraint: ir.PredicateSet{gone, keep},
	})
	holder, err := f.reg.Add(restricted)
	require.NoError(t, err)
	f.kinds()

	require.NoError(t, f.reg.Remove(gone))

	assert.Equal(t, []ir.ID{gone}, f.deps.retargets)
	assert.False(t, f.reg.Exists(gone))
	assert.False(t, f.reg.ExistsName("gone"))

	h, err := f.reg.Get(holder)
	require.NoError(t, err)
	assert.Equal(t, ir.PredicateSet{keep}, h.Fargs[0].Constraint)

	assert.Equal(t, []string{"cascade_begin", "vocab_changed", "vocab_deleted", "cascade_end"}, f.kinds())
	assert.Equal(t, ir.CodeNotFound, ir.CodeOf(f.reg.Remove(gone)))
}

func TestRemoveMatrixThroughWrongPath(t *testing.T) {
	f := newFixture(t)
	ve := &ir.VocabElement{Name: "trial", Kind: ir.VocabMatrix, ColumnID: 50, MatrixType: ir.MatrixMatrix, Fargs: untyped("<a>")}
	id, err := f.reg.Add(ve)
	require.NoError(t, err)

	assert.Equal(t, ir.CodeKindMismatch, ir.CodeOf(f.reg.Remove(id)))
	require.NoError(t, f.reg.RemoveMatrix(id))
	assert.Equal(t, 0, f.reg.Len())
	assert.Equal(t, 0, f.x.Len())
}

func TestListFiltersAndCopies(t *testing.T) {
	f := newFixture(t)
	f.addPredicate(t, "p1", "<a>")
	_, err := f.reg.Add(&ir.VocabElement{Name: "n", Kind: ir.VocabMatrix, ColumnID: 50, MatrixType: ir.MatrixNominal,
		Fargs: []ir.FormalArg{ir.NewFormalArg(ir.FixedArgName, ir.FargNominal)}})
	require.NoError(t, err)
	f.addPredicate(t, "p2", "<a>")

	all, err := f.reg.List(0, AnySystem)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"p1", "n", "p2"}, []string{all[0].Name, all[1].Name, all[2].Name})

	preds, err := f.reg.List(ir.VocabPredicate, AnySystem)
	require.NoError(t, err)
	assert.Len(t, preds, 2)

	sys, err := f.reg.List(0, OnlySystem)
	require.NoError(t, err)
	require.Len(t, sys, 1)
	assert.Equal(t, "n", sys[0].Name)

	user, err := f.reg.List(0, NoSystem)
	require.NoError(t, err)
	assert.Len(t, user, 2)

	all[0].Name = "mutated"
	again, err := f.reg.GetByName("p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Name)
}
