package db

import (
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// NewCell returns an unregistered data cell for column colID holding the
// default value of every argument. Fill it in and pass it to InsertCell or
// AppendCell.
func (d *Database) NewCell(colID ir.ID) (*ir.Cell, error) {
	mve, err := d.ColumnVocab(colID)
	if err != nil {
		return nil, err
	}
	zero := ir.TimeStamp{Ticks: 0, TPS: d.tps}
	return &ir.Cell{
		ColumnID: colID,
		Kind:     ir.CellData,
		Onset:    zero,
		Offset:   zero,
		Value:    ir.Matrix{VocabID: mve.ID, Args: d.defaultArgs(mve.Fargs)},
	}, nil
}

// NewReferenceCell returns an unregistered reference cell for column colID
// mirroring data cell targetID.
func (d *Database) NewReferenceCell(colID, targetID ir.ID) (*ir.Cell, error) {
	col, err := d.columns.Get(colID)
	if err != nil {
		return nil, err
	}
	if col.Kind != ir.ColumnReference {
		return nil, ir.ErrorfID(ir.CodeKindMismatch, "db.new_reference_cell", colID, "%q is not a reference column", col.Name)
	}
	return &ir.Cell{ColumnID: colID, Kind: ir.CellReference, TargetID: targetID}, nil
}

// NewPredicate returns a predicate value over vocabID with every argument
// at its default.
func (d *Database) NewPredicate(vocabID ir.ID) (ir.Predicate, error) {
	ve, err := d.vocab.Get(vocabID)
	if err != nil {
		return ir.Predicate{}, err
	}
	if ve.Kind != ir.VocabPredicate {
		return ir.Predicate{}, ir.ErrorfID(ir.CodeKindMismatch, "db.new_predicate", vocabID, "%q is not a predicate", ve.Name)
	}
	return ir.Predicate{VocabID: vocabID, Args: d.defaultArgs(ve.Fargs)}, nil
}

// ColPredicateOf returns a column predicate snapshotting a stored data
// cell: its ordinal, onset and offset followed by its arguments.
func (d *Database) ColPredicateOf(cellID ir.ID) (ir.ColPredicate, error) {
	cell, err := d.columns.Cell(cellID)
	if err != nil {
		return ir.ColPredicate{}, err
	}
	if cell.Kind != ir.CellData {
		return ir.ColPredicate{}, ir.ErrorfID(ir.CodeKindMismatch, "db.col_predicate_of", cellID, "not a data cell")
	}
	args := make([]ir.DataValue, 0, ir.ColPredicateImplicitArgs+len(cell.Value.Args))
	args = append(args, implicitArgs(ir.Integer(cell.Ord), cell.Onset, cell.Offset)...)
	args = append(args, ir.CloneArgs(cell.Value.Args)...)
	return ir.ColPredicate{VocabID: cell.Value.VocabID, Args: args}, nil
}

func (d *Database) defaultArgs(fargs []ir.FormalArg) []ir.DataValue {
	args := make([]ir.DataValue, len(fargs))
	for i, f := range fargs {
		args[i] = ir.Bind(f, ir.DefaultValue(f, d.tps))
	}
	return args
}

// InsertCell validates cell and stores it at ordinal ord (1-based; n+1
// appends). In temporal-ordering mode ord is ignored.
func (d *Database) InsertCell(cell *ir.Cell, ord int) (ir.ID, error) {
	var id ir.ID
	err := d.mutate("db.insert_cell", func() error {
		c := cell.Clone()
		if err := d.validateCell("db.insert_cell", c); err != nil {
			return err
		}
		var err error
		id, err = d.columns.InsertCell(c, ord)
		return err
	})
	return id, err
}

// AppendCell validates cell and stores it after the last cell of its column.
func (d *Database) AppendCell(cell *ir.Cell) (ir.ID, error) {
	n, err := d.columns.NumCells(cell.ColumnID)
	if err != nil {
		return ir.InvalidID, err
	}
	return d.InsertCell(cell, n+1)
}

// ReplaceCell validates cell and substitutes the stored cell with the same
// id. Column, kind and reference target are fixed.
func (d *Database) ReplaceCell(cell *ir.Cell) error {
	return d.mutate("db.replace_cell", func() error {
		c := cell.Clone()
		if err := d.validateCell("db.replace_cell", c); err != nil {
			return err
		}
		return d.columns.ReplaceCell(c)
	})
}

// RemoveCell deletes a cell. Removing a data cell also removes every
// reference cell that mirrors it.
func (d *Database) RemoveCell(id ir.ID) error {
	return d.mutate("db.remove_cell", func() error {
		cell, err := d.columns.Cell(id)
		if err != nil {
			return err
		}
		if cell.Kind == ir.CellReference {
			return d.columns.RemoveCell(id)
		}
		refs, err := d.referencesTo(id)
		if err != nil {
			return err
		}
		return d.inCascade(func() error {
			for _, ref := range refs {
				if err := d.columns.RemoveCell(ref); err != nil {
					return err
				}
			}
			return d.columns.RemoveCell(id)
		})
	})
}

func (d *Database) referencesTo(target ir.ID) ([]ir.ID, error) {
	cols, err := d.columns.List(ir.ColumnReference)
	if err != nil {
		return nil, err
	}
	var out []ir.ID
	for _, col := range cols {
		ids, err := d.columns.CellIDs(col.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			c, err := d.columns.Cell(id)
			if err != nil {
				return nil, ir.Internalf("cell %d listed in column %d does not resolve: %v", id, col.ID, err)
			}
			if c.TargetID == target {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// Cell returns a copy of a cell with its current ordinal.
func (d *Database) Cell(id ir.ID) (*ir.Cell, error) {
	return d.columns.Cell(id)
}

// CellByOrd returns a copy of the cell at ordinal ord of column colID.
func (d *Database) CellByOrd(colID ir.ID, ord int) (*ir.Cell, error) {
	return d.columns.CellByOrd(colID, ord)
}

// CellIDs returns the ids of a column's cells in ordinal order.
func (d *Database) CellIDs(colID ir.ID) ([]ir.ID, error) {
	return d.columns.CellIDs(colID)
}

// NumCells returns the number of cells in a column.
func (d *Database) NumCells(colID ir.ID) (int, error) {
	return d.columns.NumCells(colID)
}
