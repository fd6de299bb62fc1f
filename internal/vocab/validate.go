package vocab

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// checkName validates the grammar and the shared-name-space rule. self is
// the element's own id (InvalidID on add). A matrix element shares its name
// with its own column.
func (r *Registry) checkName(op string, ve *ir.VocabElement, self ir.ID) error {
	switch ve.Kind {
	case ir.VocabPredicate:
		if !ir.IsValidPredName(ve.Name) {
			return ir.Errorf(ir.CodeInvalidName, op, "invalid predicate name %q", ve.Name)
		}
	case ir.VocabMatrix:
		if !ir.IsValidSVarName(ve.Name) {
			return ir.Errorf(ir.CodeInvalidName, op, "invalid name %q", ve.Name)
		}
	default:
		return ir.Errorf(ir.CodeInvalidArgument, op, "unknown vocabulary kind %d", ve.Kind)
	}
	if owner, ok := r.byName[ve.Name]; ok && owner != self {
		return ir.ErrorfID(ir.CodeDuplicateName, op, owner, "name %q already used by a vocabulary element", ve.Name)
	}
	if col, ok := r.names.ColumnNameOwner(ve.Name); ok && (ve.Kind != ir.VocabMatrix || col != ve.ColumnID) {
		return ir.ErrorfID(ir.CodeDuplicateName, op, col, "name %q already used by a column", ve.Name)
	}
	return nil
}

// checkShape validates the argument list. old is the stored element on
// replace and nil on add.
func (r *Registry) checkShape(op string, ve *ir.VocabElement, old *ir.VocabElement) error {
	switch ve.Kind {
	case ir.VocabMatrix:
		if !ve.ColumnID.Valid() {
			return ir.Errorf(ir.CodeInvalidArgument, op, "matrix element %q needs a column and a matrix type", ve.Name)
		}
		if _, err := ir.ParseMatrixType(ve.MatrixType.String()); err != nil {
			return ir.Errorf(ir.CodeInvalidArgument, op, "matrix element %q has unknown matrix type", ve.Name)
		}
	case ir.VocabPredicate:
		if ve.ColumnID.Valid() || ve.MatrixType != 0 {
			return ir.Errorf(ir.CodeInvalidArgument, op, "predicate %q cannot belong to a column", ve.Name)
		}
	}
	if len(ve.Fargs) == 0 {
		return ir.Errorf(ir.CodeInvalidArgument, op, "%q needs at least one formal argument", ve.Name)
	}
	if kind, fixed := ve.MatrixType.FixedKind(); ve.Kind == ir.VocabMatrix && fixed {
		if len(ve.Fargs) != 1 || ve.Fargs[0].Kind != kind {
			return ir.Errorf(ir.CodeTypeMismatch, op, "%s column %q takes exactly one %s argument", ve.MatrixType, ve.Name, kind)
		}
	}

	var known map[ir.ID]bool
	if old != nil {
		known = make(map[ir.ID]bool, len(old.Fargs))
		for _, f := range old.Fargs {
			known[f.ID] = true
		}
	}
	names := make(map[string]bool, len(ve.Fargs))
	ids := make(map[ir.ID]bool, len(ve.Fargs))
	for i, f := range ve.Fargs {
		if !ir.IsValidFargName(f.Name) {
			return ir.Errorf(ir.CodeInvalidName, op, "invalid formal argument name %q at %d", f.Name, i)
		}
		if names[f.Name] {
			return ir.Errorf(ir.CodeDuplicateName, op, "formal argument %q repeated", f.Name)
		}
		names[f.Name] = true

		switch {
		case f.ID == ir.InvalidID:
		case old == nil:
			return ir.ErrorfID(ir.CodeInvalidArgument, op, f.ID, "new element's argument %q already has an id", f.Name)
		case !known[f.ID]:
			return ir.ErrorfID(ir.CodeInvalidArgument, op, f.ID, "argument %q does not belong to %q", f.Name, ve.Name)
		case ids[f.ID]:
			return ir.ErrorfID(ir.CodeInvalidArgument, op, f.ID, "argument id repeated")
		}
		ids[f.ID] = true

		if err := r.checkFarg(op, ve, f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) checkFarg(op string, ve *ir.VocabElement, f ir.FormalArg) error {
	if !f.Kind.Valid() {
		return ir.Errorf(ir.CodeInvalidArgument, op, "argument %q has unknown kind", f.Name)
	}
	if f.Kind == ir.FargText && ve.MatrixType != ir.MatrixText {
		return ir.Errorf(ir.CodeTypeMismatch, op, "text argument %q only allowed in text columns", f.Name)
	}
	if f.Constraint == nil {
		return nil
	}
	if !f.Constraint.Fits(f.Kind) {
		return ir.Errorf(ir.CodeTypeMismatch, op, "constraint %s does not fit %s argument %q", f.Constraint, f.Kind, f.Name)
	}
	switch c := f.Constraint.(type) {
	case ir.IntRange:
		if c.Min > c.Max {
			return ir.Errorf(ir.CodeOutOfRange, op, "empty range %s on %q", c, f.Name)
		}
	case ir.FloatRange:
		if !(c.Min <= c.Max) {
			return ir.Errorf(ir.CodeOutOfRange, op, "empty range %s on %q", c, f.Name)
		}
	case ir.TimeRange:
		if !c.Min.InRange() || !c.Max.InRange() || c.Min.Compare(c.Max) > 0 {
			return ir.Errorf(ir.CodeOutOfRange, op, "bad time range %s on %q", c, f.Name)
		}
	case ir.NominalSet:
		for _, n := range c {
			if !ir.IsValidNominal(n) {
				return ir.Errorf(ir.CodeInvalidName, op, "invalid nominal %q in subrange of %q", n, f.Name)
			}
		}
	case ir.PredicateSet:
		for _, id := range c {
			p, err := r.Get(id)
			if err != nil {
				return ir.ErrorfID(ir.CodeNotFound, op, id, "subrange of %q names unknown predicate", f.Name)
			}
			if p.Kind != ir.VocabPredicate {
				return ir.ErrorfID(ir.CodeKindMismatch, op, id, "subrange of %q names matrix element %q", f.Name, p.Name)
			}
		}
	}
	return nil
}
