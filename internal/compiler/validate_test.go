package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateVocabSpec(t *testing.T) {
	pred := func(name string, args ...ir.ArgDecl) ir.PredicateDecl {
		return ir.PredicateDecl{Name: name, Args: args}
	}
	arg := func(name string) ir.ArgDecl { return ir.ArgDecl{Name: name} }

	tests := []struct {
		name string
		spec ir.VocabSpec
		want []string
	}{
		{
			name: "valid",
			spec: ir.VocabSpec{
				Predicates: []ir.PredicateDecl{pred("p", arg("x"))},
				Columns:    []ir.ColumnDecl{{Name: "c", Type: "matrix", Args: []ir.ArgDecl{arg("y")}}},
			},
		},
		{
			name: "database name",
			spec: ir.VocabSpec{Database: "(bad)"},
			want: []string{ErrInvalidDatabaseName},
		},
		{
			name: "ticks",
			spec: ir.VocabSpec{TicksPerSecond: ir.MaxTPS + 1},
			want: []string{ErrTicksOutOfRange},
		},
		{
			name: "predicate name with space",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("a b", arg("x"))}},
			want: []string{ErrInvalidPredicate},
		},
		{
			name: "column name",
			spec: ir.VocabSpec{Columns: []ir.ColumnDecl{{Name: "", Type: "integer"}}},
			want: []string{ErrInvalidColumnName},
		},
		{
			name: "shared namespace",
			spec: ir.VocabSpec{
				Predicates: []ir.PredicateDecl{pred("x", arg("a"))},
				Columns:    []ir.ColumnDecl{{Name: "x", Type: "integer"}},
			},
			want: []string{ErrDuplicateName},
		},
		{
			name: "predicate without arguments",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p")}},
			want: []string{ErrArgumentCount},
		},
		{
			name: "fixed column with arguments",
			spec: ir.VocabSpec{Columns: []ir.ColumnDecl{{Name: "c", Type: "float", Args: []ir.ArgDecl{arg("x")}}}},
			want: []string{ErrArgumentCount},
		},
		{
			name: "reference column with arguments",
			spec: ir.VocabSpec{Columns: []ir.ColumnDecl{{Name: "c", Type: "reference", Args: []ir.ArgDecl{arg("x")}}}},
			want: []string{ErrArgumentCount},
		},
		{
			name: "repeated argument",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", arg("x"), arg("<x>"))}},
			want: []string{ErrInvalidArgName},
		},
		{
			name: "bad argument name",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", arg("a(b"))}},
			want: []string{ErrInvalidArgName},
		},
		{
			name: "unknown kind",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "colour"})}},
			want: []string{ErrInvalidArgKind},
		},
		{
			name: "text argument",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "text"})}},
			want: []string{ErrInvalidArgKind},
		},
		{
			name: "column type",
			spec: ir.VocabSpec{Columns: []ir.ColumnDecl{{Name: "c", Type: "blob"}}},
			want: []string{ErrInvalidColumnType},
		},
		{
			name: "inverted range",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "integer", Min: "5", Max: "1"})}},
			want: []string{ErrInvalidRange},
		},
		{
			name: "range on nominal",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "nominal", Min: "1"})}},
			want: []string{ErrInvalidRange},
		},
		{
			name: "unparseable bound",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "float", Max: "lots"})}},
			want: []string{ErrInvalidRange},
		},
		{
			name: "negative time",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "time_stamp", Min: "-1"})}},
			want: []string{ErrInvalidRange},
		},
		{
			name: "values on integer",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "integer", Values: []string{"a"}})}},
			want: []string{ErrInvalidValues},
		},
		{
			name: "bad nominal value",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "nominal", Values: []string{"a,b"}})}},
			want: []string{ErrInvalidValues},
		},
		{
			name: "unknown predicate",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{pred("p", ir.ArgDecl{Name: "x", Kind: "predicate", Predicates: []string{"q"}})}},
			want: []string{ErrUnknownPredicate},
		},
		{
			name: "forward predicate reference",
			spec: ir.VocabSpec{Predicates: []ir.PredicateDecl{
				pred("p", ir.ArgDecl{Name: "x", Kind: "predicate", Predicates: []string{"q", "p"}}),
				pred("q", arg("y")),
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&tt.spec)
			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, codes(errs))
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	spec := ir.VocabSpec{
		Database:   "(bad)",
		Predicates: []ir.PredicateDecl{{Name: "p"}},
		Columns:    []ir.ColumnDecl{{Name: "p", Type: "blob"}},
	}
	errs := Validate(spec)
	assert.Equal(t, []string{ErrInvalidDatabaseName, ErrArgumentCount, ErrDuplicateName, ErrInvalidColumnType}, codes(errs))

	err := Combine(errs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[E101]")
	assert.Contains(t, err.Error(), "[E109]")
	assert.NoError(t, Combine(nil))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("nope")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}
