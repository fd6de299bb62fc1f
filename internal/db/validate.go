package db

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// maxValueDepth bounds predicate nesting. A predicate may legally contain
// itself, so the bound is what stops a pathological value.
const maxValueDepth = 64

// validateCell checks a cell against its column and vocabulary and binds
// every value to the formal argument it fills. cell is the caller's clone
// and is modified in place.
func (d *Database) validateCell(op string, cell *ir.Cell) error {
	col, err := d.columns.Get(cell.ColumnID)
	if err != nil {
		return err
	}
	if !ir.IsValidTextString(cell.Comment) {
		return ir.ErrorfID(ir.CodeInvalidArgument, op, cell.ID, "invalid comment")
	}

	switch cell.Kind {
	case ir.CellReference:
		if col.Kind != ir.ColumnReference {
			return ir.ErrorfID(ir.CodeKindMismatch, op, col.ID, "reference cell in data column %q", col.Name)
		}
		target, err := d.columns.Cell(cell.TargetID)
		if err != nil {
			return err
		}
		if target.Kind != ir.CellData {
			return ir.ErrorfID(ir.CodeKindMismatch, op, cell.TargetID, "a reference cell must target a data cell")
		}
		return nil
	case ir.CellData:
	default:
		return ir.Errorf(ir.CodeInvalidArgument, op, "unknown cell kind %d", cell.Kind)
	}

	if col.Kind != ir.ColumnData {
		return ir.ErrorfID(ir.CodeKindMismatch, op, col.ID, "data cell in reference column %q", col.Name)
	}
	if cell.Value.VocabID != col.VocabID {
		return ir.ErrorfID(ir.CodeTypeMismatch, op, col.ID, "matrix is not shaped by column %q", col.Name)
	}
	for _, ts := range []ir.TimeStamp{cell.Onset, cell.Offset} {
		if !ts.InRange() {
			return ir.ErrorfID(ir.CodeOutOfRange, op, cell.ID, "time stamp %d at %d tps out of range", ts.Ticks, ts.TPS)
		}
	}
	mve, err := d.vocab.Get(col.VocabID)
	if err != nil {
		return err
	}
	return d.bindArgs(op, mve, cell.Value.Args, 0)
}

// bindArgs checks that args fit ve's argument list and rebinds each value
// to its formal argument.
func (d *Database) bindArgs(op string, ve *ir.VocabElement, args []ir.DataValue, depth int) error {
	if len(args) != len(ve.Fargs) {
		return ir.ErrorfID(ir.CodeTypeMismatch, op, ve.ID, "%s takes %d arguments, got %d", ve.Name, len(ve.Fargs), len(args))
	}
	for i, f := range ve.Fargs {
		if err := d.bindValue(op, f, &args[i], depth); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) bindValue(op string, f ir.FormalArg, dv *ir.DataValue, depth int) error {
	if depth > maxValueDepth {
		return ir.Errorf(ir.CodeInvalidArgument, op, "value nested deeper than %d", maxValueDepth)
	}
	if dv.Value == nil {
		dv.Value = ir.DefaultValue(f, d.tps)
	}
	if !ir.Legal(f, dv.Value) {
		return ir.ErrorfID(ir.CodeTypeMismatch, op, f.ID, "%s value is not legal for %s", dv.Value.Kind(), f)
	}
	if err := ir.CheckScalar(dv.Value); err != nil {
		return err
	}
	dv.FargID = f.ID
	dv.FargKind = f.Kind

	switch v := dv.Value.(type) {
	case ir.Predicate:
		if ir.IsEmpty(v) {
			if len(v.Args) > 0 {
				return ir.Errorf(ir.CodeInvalidArgument, op, "empty predicate with arguments")
			}
			return nil
		}
		ve, err := d.vocab.Get(v.VocabID)
		if err != nil {
			return err
		}
		if ve.Kind != ir.VocabPredicate {
			return ir.ErrorfID(ir.CodeKindMismatch, op, v.VocabID, "%q is not a predicate", ve.Name)
		}
		if err := d.bindArgs(op, ve, v.Args, depth+1); err != nil {
			return err
		}
		dv.Value = v
	case ir.ColPredicate:
		if ir.IsEmpty(v) {
			if len(v.Args) > 0 {
				return ir.Errorf(ir.CodeInvalidArgument, op, "empty column predicate with arguments")
			}
			return nil
		}
		ve, err := d.vocab.Get(v.VocabID)
		if err != nil {
			return err
		}
		if ve.Kind != ir.VocabMatrix {
			return ir.ErrorfID(ir.CodeKindMismatch, op, v.VocabID, "%q is not a column's matrix", ve.Name)
		}
		if len(v.Args) != ir.ColPredicateImplicitArgs+len(ve.Fargs) {
			return ir.ErrorfID(ir.CodeTypeMismatch, op, ve.ID, "column predicate over %s takes %d arguments, got %d",
				ve.Name, ir.ColPredicateImplicitArgs+len(ve.Fargs), len(v.Args))
		}
		if err := d.bindImplicit(op, v.Args[:ir.ColPredicateImplicitArgs]); err != nil {
			return err
		}
		if err := d.bindArgs(op, ve, v.Args[ir.ColPredicateImplicitArgs:], depth+1); err != nil {
			return err
		}
		dv.Value = v
	}
	return nil
}

// bindImplicit checks the ordinal, onset and offset leading a column
// predicate's arguments.
func (d *Database) bindImplicit(op string, args []ir.DataValue) error {
	want := implicitKinds()
	for i := range args {
		v := args[i].Value
		if v == nil {
			v = ir.DefaultValue(ir.FormalArg{Kind: want[i]}, d.tps)
		}
		switch x := v.(type) {
		case ir.Integer:
			if want[i] != ir.FargInteger {
				return ir.Errorf(ir.CodeTypeMismatch, op, "column predicate argument %d must be a time stamp", i)
			}
		case ir.TimeStamp:
			if want[i] != ir.FargTimeStamp {
				return ir.Errorf(ir.CodeTypeMismatch, op, "column predicate argument %d must be an integer", i)
			}
			if !x.InRange() {
				return ir.Errorf(ir.CodeOutOfRange, op, "time stamp %d at %d tps out of range", x.Ticks, x.TPS)
			}
		default:
			return ir.Errorf(ir.CodeTypeMismatch, op, "column predicate argument %d has %s value", i, v.Kind())
		}
		args[i] = ir.DataValue{FargKind: want[i], Value: v}
	}
	return nil
}

func implicitKinds() [ir.ColPredicateImplicitArgs]ir.FargKind {
	return [...]ir.FargKind{ir.FargInteger, ir.FargTimeStamp, ir.FargTimeStamp}
}

func implicitArgs(ord ir.Integer, onset, offset ir.TimeStamp) []ir.DataValue {
	return []ir.DataValue{
		{FargKind: ir.FargInteger, Value: ord},
		{FargKind: ir.FargTimeStamp, Value: onset},
		{FargKind: ir.FargTimeStamp, Value: offset},
	}
}
