package db

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/propagate"
)

// The Database is the vocabulary registry's view of stored data. These
// methods run inside the registry's cascade, after the edit was validated,
// so every failure here is an internal one.

// Propagate rewrites every stored cell whose value mentions the edited
// element, at any depth, and writes changed cells back through the normal
// cell-replace path.
func (d *Database) Propagate(s *propagate.Script) error {
	rewritten := 0
	err := d.eachDataCell(func(cell *ir.Cell) error {
		m, changed, err := s.RewriteMatrix(cell.Value, d.tps)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		cell.Value = m
		rewritten++
		return d.writeBack(cell)
	})
	d.log.Debug("propagated argument edit",
		zap.Int64("vocab_id", int64(s.VocabID)),
		zap.Int("cells", rewritten))
	return err
}

// Retarget replaces every reference to a removed element with the empty
// value of its slot.
func (d *Database) Retarget(removed ir.ID) error {
	return d.eachDataCell(func(cell *ir.Cell) error {
		m, changed := propagate.RetargetMatrix(cell.Value, removed)
		if !changed {
			return nil
		}
		cell.Value = m
		return d.writeBack(cell)
	})
}

// Renamed keeps a data column's name equal to its matrix element's.
func (d *Database) Renamed(ve *ir.VocabElement) error {
	col, err := d.columns.Get(ve.ColumnID)
	if err != nil {
		return errors.WithAssertionFailure(err)
	}
	if col.Name == ve.Name {
		return nil
	}
	col.Name = ve.Name
	if err := d.columns.Replace(col); err != nil {
		return errors.WithAssertionFailure(errors.Wrapf(err, "renaming column %d", col.ID))
	}
	return nil
}

func (d *Database) writeBack(cell *ir.Cell) error {
	if err := d.columns.ReplaceCell(cell); err != nil {
		if ir.IsInternal(err) {
			return err
		}
		return errors.WithAssertionFailure(errors.Wrapf(err, "writing back cell %d", cell.ID))
	}
	return nil
}

// eachDataCell calls fn with a copy of every data cell, column by column.
func (d *Database) eachDataCell(fn func(*ir.Cell) error) error {
	cols, err := d.columns.List(ir.ColumnData)
	if err != nil {
		return err
	}
	for _, col := range cols {
		ids, err := d.columns.CellIDs(col.ID)
		if err != nil {
			return errors.WithAssertionFailure(err)
		}
		for _, id := range ids {
			cell, err := d.columns.Cell(id)
			if err != nil {
				return errors.WithAssertionFailure(err)
			}
			if err := fn(cell); err != nil {
				return err
			}
		}
	}
	return nil
}
