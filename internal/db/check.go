package db

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/vocab"
)

// Check verifies the structural invariants of the whole image: names are
// unique, every column matches its matrix element, cells follow onset order
// when temporal ordering is on, and every stored value is bound to the
// current argument lists at every depth. It returns all
// violations combined, as internal errors, or nil.
func (d *Database) Check() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, ir.Internalf(format, args...))
	}

	elems, err := d.vocab.List(0, vocab.AnySystem)
	if err != nil {
		return err
	}
	cols, err := d.columns.List(0)
	if err != nil {
		return err
	}
	registered := len(elems) + len(cols)

	for _, ve := range elems {
		registered += len(ve.Fargs)
		for _, f := range ve.Fargs {
			stored, err := d.FormalArg(f.ID)
			switch {
			case err != nil:
				fail("vocab %q: formal argument %d is not registered", ve.Name, f.ID)
			case stored.VocabID != ve.ID || !stored.SameShape(f) || stored.Name != f.Name:
				fail("vocab %q: formal argument %s differs from its registered copy", ve.Name, f.Name)
			}
		}
		if ve.Kind == ir.VocabMatrix {
			col, err := d.columns.Get(ve.ColumnID)
			switch {
			case err != nil:
				fail("matrix %q: column %d does not exist", ve.Name, ve.ColumnID)
			case col.VocabID != ve.ID || col.Name != ve.Name:
				fail("matrix %q: column %d is out of step", ve.Name, col.ID)
			}
		}
	}

	names := make(map[string]ir.ID)
	for _, col := range cols {
		names[col.Name] = col.ID
		ids, err := d.columns.CellIDs(col.ID)
		if err != nil {
			return err
		}
		registered += len(ids)
		if err := d.columns.CheckOrder(col.ID); err != nil {
			fail("column %q: %v", col.Name, err)
		}
		var mve *ir.VocabElement
		if col.Kind == ir.ColumnData {
			if mve, err = d.vocab.Get(col.VocabID); err != nil {
				fail("column %q: matrix element %d does not exist", col.Name, col.VocabID)
				continue
			}
		}
		for _, id := range ids {
			cell, err := d.columns.Cell(id)
			if err != nil {
				fail("column %q: cell %d does not resolve", col.Name, id)
				continue
			}
			if col.Kind == ir.ColumnReference {
				if t, err := d.columns.Cell(cell.TargetID); err != nil || t.Kind != ir.CellData {
					fail("column %q: reference cell %d has no data target", col.Name, id)
				}
				continue
			}
			if cell.Value.VocabID != mve.ID {
				fail("column %q: cell %d is shaped by %d", col.Name, id, cell.Value.VocabID)
				continue
			}
			if err := d.checkArgs(mve, cell.Value.Args, 0); err != nil {
				fail("column %q: cell %d: %v", col.Name, id, err)
			}
		}
	}
	for _, ve := range elems {
		if owner, ok := names[ve.Name]; ok && (ve.Kind != ir.VocabMatrix || owner != ve.ColumnID) {
			fail("name %q is shared by vocab element %d and column %d", ve.Name, ve.ID, owner)
		}
	}

	if n := d.index.Len(); n != registered {
		fail("index holds %d elements, registries account for %d", n, registered)
	}
	return errs
}

// checkArgs verifies that args are bound to ve's current argument list.
// Unlike bindArgs it rebinds nothing.
func (d *Database) checkArgs(ve *ir.VocabElement, args []ir.DataValue, depth int) error {
	if depth > maxValueDepth {
		return errors.Newf("value nested deeper than %d", maxValueDepth)
	}
	if len(args) != len(ve.Fargs) {
		return errors.Newf("%s has %d arguments, value has %d", ve.Name, len(ve.Fargs), len(args))
	}
	for i, f := range ve.Fargs {
		dv := args[i]
		if dv.FargID != f.ID || dv.FargKind != f.Kind {
			return errors.Newf("argument %d of %s is bound to farg %d", i, ve.Name, dv.FargID)
		}
		if !ir.Legal(f, dv.Value) {
			return errors.Newf("argument %s of %s holds an illegal %s", f.Name, ve.Name, dv.Value.Kind())
		}
		var (
			nestedID   ir.ID
			nestedArgs []ir.DataValue
		)
		switch v := dv.Value.(type) {
		case ir.Predicate:
			nestedID, nestedArgs = v.VocabID, v.Args
		case ir.ColPredicate:
			if v.VocabID.Valid() {
				if len(v.Args) < ir.ColPredicateImplicitArgs {
					return errors.Newf("column predicate in %s lacks its implicit arguments", f.Name)
				}
				nestedID, nestedArgs = v.VocabID, v.Args[ir.ColPredicateImplicitArgs:]
			}
		}
		if !nestedID.Valid() {
			continue
		}
		nested, err := d.vocab.Get(nestedID)
		if err != nil {
			return errors.Newf("argument %s of %s references missing element %d", f.Name, ve.Name, nestedID)
		}
		if err := d.checkArgs(nested, nestedArgs, depth+1); err != nil {
			return err
		}
	}
	return nil
}
