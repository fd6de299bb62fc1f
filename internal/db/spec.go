package db

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// FromSpec builds a database from a compiled vocabulary declaration. The
// declaration's name and tick rate are used when set.
func FromSpec(spec *ir.VocabSpec, opts ...Option) (*Database, error) {
	name := spec.Database
	if name == "" {
		name = "untitled"
	}
	if spec.TicksPerSecond > 0 {
		opts = append([]Option{WithTicksPerSecond(spec.TicksPerSecond)}, opts...)
	}
	d, err := New(name, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.ApplySpec(spec); err != nil {
		return nil, err
	}
	return d, nil
}

// ApplySpec adds every declared predicate and column in one cascade.
// Declarations are applied in order and a caller error stops at the
// failing one, leaving earlier declarations in place.
//
// Predicate subranges may name predicates declared later: predicates are
// added first without their subranges, which are then attached by replace.
func (d *Database) ApplySpec(spec *ir.VocabSpec) error {
	return d.mutate("db.apply_spec", func() error {
		return d.inCascade(func() error {
			return d.applySpec(spec)
		})
	})
}

func (d *Database) applySpec(spec *ir.VocabSpec) error {
	var constrained []ir.PredicateDecl
	for _, p := range spec.Predicates {
		fargs, err := d.declaredArgs(p.Args, false)
		if err != nil {
			return declared(p.Name, err)
		}
		if _, err := d.AddPredicate(p.Name, fargs...); err != nil {
			return declared(p.Name, err)
		}
		for _, a := range p.Args {
			if len(a.Predicates) > 0 {
				constrained = append(constrained, p)
				break
			}
		}
	}

	for _, p := range constrained {
		ve, err := d.vocab.GetByName(p.Name)
		if err != nil {
			return err
		}
		fargs, err := d.declaredArgs(p.Args, true)
		if err != nil {
			return declared(p.Name, err)
		}
		for i := range fargs {
			ve.Fargs[i].Constraint = fargs[i].Constraint
		}
		if err := d.ReplaceVocabElement(ve); err != nil {
			return declared(p.Name, err)
		}
	}

	for _, c := range spec.Columns {
		if err := d.applyColumn(c); err != nil {
			return declared(c.Name, err)
		}
	}
	return nil
}

func (d *Database) applyColumn(c ir.ColumnDecl) error {
	var id ir.ID
	if c.Type == ir.ColumnTypeReference {
		var err error
		if id, err = d.AddReferenceColumn(c.Name); err != nil {
			return err
		}
	} else {
		mtype, err := ir.ParseMatrixType(c.Type)
		if err != nil {
			return ir.Errorf(ir.CodeInvalidArgument, "db.apply_spec", "%v", err)
		}
		fargs, err := d.declaredArgs(c.Args, true)
		if err != nil {
			return err
		}
		if id, err = d.AddColumn(c.Name, mtype, fargs...); err != nil {
			return err
		}
	}
	if !c.Hidden {
		return nil
	}
	col, err := d.columns.Get(id)
	if err != nil {
		return err
	}
	col.Hidden = true
	return d.ReplaceColumn(col)
}

// declared prefixes a caller error with the declaration it came from.
// Internal errors pass through untouched.
func declared(name string, err error) error {
	var e *ir.Error
	if !errors.As(err, &e) || ir.IsInternal(err) {
		return err
	}
	return &ir.Error{Code: e.Code, Op: "db.apply_spec", Message: name + ": " + e.Message, ID: e.ID}
}

// declaredArgs converts argument declarations to unregistered formal
// arguments. Predicate subranges are resolved only when withPredicates is
// set.
func (d *Database) declaredArgs(decls []ir.ArgDecl, withPredicates bool) ([]ir.FormalArg, error) {
	out := make([]ir.FormalArg, 0, len(decls))
	for _, decl := range decls {
		f, err := d.declaredArg(decl, withPredicates)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// DeclaredArg builds an unregistered formal argument from a declaration.
// Predicate subranges resolve against the current vocabulary.
func (d *Database) DeclaredArg(decl ir.ArgDecl) (ir.FormalArg, error) {
	return d.declaredArg(decl, true)
}

func (d *Database) declaredArg(decl ir.ArgDecl, withPredicates bool) (ir.FormalArg, error) {
	const op = "db.apply_spec"
	name := decl.Name
	if !strings.HasPrefix(name, "<") {
		name = "<" + name + ">"
	}
	kind := ir.FargUntyped
	if decl.Kind != "" {
		var err error
		if kind, err = ir.ParseFargKind(decl.Kind); err != nil {
			return ir.FormalArg{}, ir.Errorf(ir.CodeInvalidArgument, op, "argument %s: %v", name, err)
		}
	}
	f := ir.NewFormalArg(name, kind)

	hasRange := decl.Min != "" || decl.Max != ""
	switch {
	case hasRange:
		c, err := d.declaredRange(kind, decl.Min, decl.Max)
		if err != nil {
			return ir.FormalArg{}, ir.Errorf(ir.CodeInvalidArgument, op, "argument %s: %v", name, err)
		}
		f.Constraint = c
	case len(decl.Values) > 0:
		if kind != ir.FargNominal {
			return ir.FormalArg{}, ir.Errorf(ir.CodeInvalidArgument, op, "argument %s: values need a nominal argument", name)
		}
		f.Constraint = ir.NominalSet(append([]string(nil), decl.Values...))
	case len(decl.Predicates) > 0:
		if kind != ir.FargPredicate {
			return ir.FormalArg{}, ir.Errorf(ir.CodeInvalidArgument, op, "argument %s: predicates need a predicate argument", name)
		}
		if !withPredicates {
			break
		}
		set := make(ir.PredicateSet, 0, len(decl.Predicates))
		for _, pname := range decl.Predicates {
			ve, err := d.vocab.GetByName(pname)
			if err != nil {
				return ir.FormalArg{}, ir.Errorf(ir.CodeNotFound, op, "argument %s: unknown predicate %q", name, pname)
			}
			set = append(set, ve.ID)
		}
		f.Constraint = set
	}
	return f, nil
}

func (d *Database) declaredRange(kind ir.FargKind, lo, hi string) (ir.Constraint, error) {
	switch kind {
	case ir.FargInteger:
		r := ir.IntRange{Min: math.MinInt64, Max: math.MaxInt64}
		if err := parseBound(lo, &r.Min, parseInt); err != nil {
			return nil, err
		}
		if err := parseBound(hi, &r.Max, parseInt); err != nil {
			return nil, err
		}
		return r, nil
	case ir.FargFloat:
		r := ir.FloatRange{Min: math.Inf(-1), Max: math.Inf(1)}
		if err := parseBound(lo, &r.Min, parseFloat); err != nil {
			return nil, err
		}
		if err := parseBound(hi, &r.Max, parseFloat); err != nil {
			return nil, err
		}
		return r, nil
	case ir.FargTimeStamp:
		from, to := ir.MinTicks, ir.MaxTicks
		if err := parseBound(lo, &from, parseInt); err != nil {
			return nil, err
		}
		if err := parseBound(hi, &to, parseInt); err != nil {
			return nil, err
		}
		return ir.TimeRange{
			Min: ir.TimeStamp{Ticks: from, TPS: d.tps},
			Max: ir.TimeStamp{Ticks: to, TPS: d.tps},
		}, nil
	}
	return nil, errors.Newf("a range needs an integer, float or time_stamp argument, not %s", kind)
}

func parseBound[T any](s string, dst *T, parse func(string) (T, error)) error {
	if s == "" {
		return nil
	}
	v, err := parse(s)
	if err != nil {
		return errors.Wrapf(err, "bound %q", s)
	}
	*dst = v
	return nil
}

func parseInt(s string) (int64, error)     { return strconv.ParseInt(s, 10, 64) }
func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
