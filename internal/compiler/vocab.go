package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// CompileVocab reads a vocabulary declaration from a CUE value. Predicates
// and columns keep their declaration order.
//
//	database:         "session"
//	ticks_per_second: 1000
//	predicate: likes: args: ["<who>", {name: "what", kind: "nominal", values: ["tea", "coffee"]}]
//	column: trial: {type: "matrix", args: ["<subject>", "<response>"]}
//
// Structural checks only: the result should still go through Validate.
func CompileVocab(v cue.Value) (*ir.VocabSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.VocabSpec{
		Predicates: []ir.PredicateDecl{},
		Columns:    []ir.ColumnDecl{},
	}

	if dbVal := v.LookupPath(cue.ParsePath("database")); dbVal.Exists() {
		name, err := dbVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Database = name
	}

	if tpsVal := v.LookupPath(cue.ParsePath("ticks_per_second")); tpsVal.Exists() {
		tps, err := tpsVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.TicksPerSecond = tps
	}

	var err error
	spec.Predicates, err = parsePredicates(v)
	if err != nil {
		return nil, err
	}
	spec.Columns, err = parseColumns(v)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

func parsePredicates(v cue.Value) ([]ir.PredicateDecl, error) {
	out := []ir.PredicateDecl{}
	predVal := v.LookupPath(cue.ParsePath("predicate"))
	if !predVal.Exists() {
		return out, nil
	}
	iter, err := predVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		args, err := parseArgs(iter.Value(), "predicate."+name)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.PredicateDecl{Name: name, Args: args})
	}
	return out, nil
}

func parseColumns(v cue.Value) ([]ir.ColumnDecl, error) {
	out := []ir.ColumnDecl{}
	colVal := v.LookupPath(cue.ParsePath("column"))
	if !colVal.Exists() {
		return out, nil
	}
	iter, err := colVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		field := "column." + name
		cv := iter.Value()

		decl := ir.ColumnDecl{Name: name, Type: ir.MatrixMatrix.String()}
		if typeVal := cv.LookupPath(cue.ParsePath("type")); typeVal.Exists() {
			typ, err := typeVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			decl.Type = typ
		}
		if hiddenVal := cv.LookupPath(cue.ParsePath("hidden")); hiddenVal.Exists() {
			hidden, err := hiddenVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			decl.Hidden = hidden
		}
		args, err := parseArgs(cv, field)
		if err != nil {
			return nil, err
		}
		if len(args) > 0 {
			decl.Args = args
		}
		out = append(out, decl)
	}
	return out, nil
}

// parseArgs reads the optional args list of a predicate or column.
func parseArgs(v cue.Value, field string) ([]ir.ArgDecl, error) {
	argsVal := v.LookupPath(cue.ParsePath("args"))
	if !argsVal.Exists() {
		return nil, nil
	}
	iter, err := argsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.ArgDecl
	for i := 0; iter.Next(); i++ {
		arg, err := parseArg(iter.Value(), fmt.Sprintf("%s.args[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, arg)
	}
	return out, nil
}

// parseArg accepts either a bare name (untyped) or a struct.
func parseArg(v cue.Value, field string) (ir.ArgDecl, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		name, err := v.String()
		if err != nil {
			return ir.ArgDecl{}, formatCUEError(err)
		}
		return ir.ArgDecl{Name: name}, nil
	case cue.StructKind:
	default:
		return ir.ArgDecl{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("argument must be a name or a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	var arg ir.ArgDecl
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return arg, &CompileError{Field: field, Message: "name is required", Pos: v.Pos()}
	}
	var err error
	if arg.Name, err = nameVal.String(); err != nil {
		return arg, formatCUEError(err)
	}
	if kindVal := v.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
		if arg.Kind, err = kindVal.String(); err != nil {
			return arg, formatCUEError(err)
		}
	}
	if arg.Min, err = parseBound(v, "min", field); err != nil {
		return arg, err
	}
	if arg.Max, err = parseBound(v, "max", field); err != nil {
		return arg, err
	}
	if arg.Values, err = parseStrings(v, "values"); err != nil {
		return arg, err
	}
	if arg.Predicates, err = parseStrings(v, "predicates"); err != nil {
		return arg, err
	}
	return arg, nil
}

// parseBound renders a numeric or string bound as a decimal string.
func parseBound(v cue.Value, label, field string) (string, error) {
	bv := v.LookupPath(cue.ParsePath(label))
	if !bv.Exists() {
		return "", nil
	}
	switch bv.IncompleteKind() {
	case cue.IntKind:
		n, err := bv.Int64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatInt(n, 10), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := bv.Float64()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case cue.StringKind:
		s, err := bv.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		return s, nil
	}
	return "", &CompileError{
		Field:   field + "." + label,
		Message: fmt.Sprintf("bound must be a number, got %v", bv.IncompleteKind()),
		Pos:     bv.Pos(),
	}
}

func parseStrings(v cue.Value, label string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(label))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
