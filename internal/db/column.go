package db

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// AddColumn creates a data column together with its matrix vocabulary
// element and returns the column id. Fixed-shape matrix types get their
// single argument automatically; a matrix column with no arguments gets one
// untyped "<arg0>".
func (d *Database) AddColumn(name string, mtype ir.MatrixType, fargs ...ir.FormalArg) (ir.ID, error) {
	const op = "db.add_column"
	var colID ir.ID
	err := d.mutate(op, func() error {
		if !ir.IsValidSVarName(name) {
			return ir.Errorf(ir.CodeInvalidName, op, "invalid column name %q", name)
		}
		if d.vocab.NameInUse(name) {
			return ir.Errorf(ir.CodeDuplicateName, op, "name %q is already in use", name)
		}
		fargs = cloneFargs(fargs)
		if len(fargs) == 0 {
			kind, fixed := mtype.FixedKind()
			switch {
			case fixed:
				fargs = []ir.FormalArg{ir.NewFormalArg(ir.FixedArgName, kind)}
			case mtype == ir.MatrixMatrix:
				fargs = []ir.FormalArg{ir.NewFormalArg("<arg0>", ir.FargUntyped)}
			}
		}

		return d.inCascade(func() error {
			colID = d.index.Allocate()
			ve := &ir.VocabElement{
				Name:       name,
				Kind:       ir.VocabMatrix,
				Fargs:      fargs,
				ColumnID:   colID,
				MatrixType: mtype,
			}
			vocabID, err := d.vocab.Add(ve)
			if err != nil {
				return err
			}
			_, err = d.columns.Add(&ir.Column{
				ID:         colID,
				Name:       name,
				Kind:       ir.ColumnData,
				VocabID:    vocabID,
				MatrixType: mtype,
			})
			if ir.IsCallerError(err) {
				return ir.Internalf("column %q rejected after its matrix element was added: %v", name, err)
			}
			return err
		})
	})
	if err != nil {
		return ir.InvalidID, err
	}
	return colID, nil
}

// AddReferenceColumn creates a column whose cells mirror data cells held
// elsewhere.
func (d *Database) AddReferenceColumn(name string) (ir.ID, error) {
	var id ir.ID
	err := d.mutate("db.add_reference_column", func() error {
		var err error
		id, err = d.columns.Add(&ir.Column{Name: name, Kind: ir.ColumnReference})
		return err
	})
	return id, err
}

// ReplaceColumn changes a column's name or hidden flag. Renaming a data
// column renames its matrix element in the same cascade.
func (d *Database) ReplaceColumn(col *ir.Column) error {
	const op = "db.replace_column"
	return d.mutate(op, func() error {
		old, err := d.columns.Get(col.ID)
		if err != nil {
			return err
		}
		if col.Kind != old.Kind || col.VocabID != old.VocabID || col.MatrixType != old.MatrixType {
			return ir.ErrorfID(ir.CodeKindMismatch, op, col.ID, "kind and matrix element of a column are fixed")
		}
		if *col == *old {
			return nil
		}
		if col.Kind == ir.ColumnReference || col.Name == old.Name {
			return d.columns.Replace(col.Clone())
		}

		mve, err := d.vocab.Get(col.VocabID)
		if err != nil {
			return err
		}
		mve.Name = col.Name
		return d.inCascade(func() error {
			// Renamed keeps the column in step with the element.
			if err := d.vocab.ReplaceSystem(mve); err != nil {
				return err
			}
			return d.columns.Replace(col.Clone())
		})
	})
}

// RemoveColumn deletes an empty column. A data column's matrix element
// goes with it, and column predicates naming it are retargeted to empty.
func (d *Database) RemoveColumn(id ir.ID) error {
	const op = "db.remove_column"
	return d.mutate(op, func() error {
		col, err := d.columns.Get(id)
		if err != nil {
			return err
		}
		n, err := d.columns.NumCells(id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ir.ErrorfID(ir.CodeNotEmpty, op, id, "column %q still has %d cells", col.Name, n)
		}
		return d.inCascade(func() error {
			if col.Kind == ir.ColumnData {
				if err := d.vocab.RemoveMatrix(col.VocabID); err != nil {
					return err
				}
			}
			return d.columns.Remove(id)
		})
	})
}

// Column returns a copy of a column.
func (d *Database) Column(id ir.ID) (*ir.Column, error) {
	return d.columns.Get(id)
}

// ColumnByName returns a copy of the named column.
func (d *Database) ColumnByName(name string) (*ir.Column, error) {
	return d.columns.GetByName(name)
}

// Columns lists columns of one kind in creation order. Kind 0 lists both.
func (d *Database) Columns(kind ir.ColumnKind) ([]*ir.Column, error) {
	return d.columns.List(kind)
}

// ColumnVocab returns a copy of a data column's matrix element.
func (d *Database) ColumnVocab(colID ir.ID) (*ir.VocabElement, error) {
	col, err := d.columns.Get(colID)
	if err != nil {
		return nil, err
	}
	if col.Kind != ir.ColumnData {
		return nil, ir.ErrorfID(ir.CodeKindMismatch, "db.column_vocab", colID, "%q is a reference column", col.Name)
	}
	return d.vocab.Get(col.VocabID)
}
