package column

import (
	"slices"

	"go.uber.org/multierr"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// InsertCell registers cell and places it at ordinal ord (1-based; n+1
// appends). In temporal mode ord is ignored and the cell lands by onset.
//
// The registry checks placement only. The database validates the value
// against the column's vocabulary before calling InsertCell.
func (r *Registry) InsertCell(cell *ir.Cell, ord int) (ir.ID, error) {
	const op = "column.insert_cell"
	if cell.ID != ir.InvalidID {
		return ir.InvalidID, ir.ErrorfID(ir.CodeInvalidArgument, op, cell.ID, "cell already has an id")
	}
	col, err := r.Get(cell.ColumnID)
	if err != nil {
		return ir.InvalidID, err
	}
	if err := checkCellKind(op, col, cell); err != nil {
		return ir.InvalidID, err
	}
	n := len(r.cells[col.ID])
	if !r.temporal && (ord < 1 || ord > n+1) {
		return ir.InvalidID, ir.Errorf(ir.CodeOutOfRange, op, "ordinal %d out of range [1,%d] in %q", ord, n+1, col.Name)
	}

	if err := r.cascade.Start(); err != nil {
		return ir.InvalidID, err
	}
	id, err := r.insertCell(cell, ord)
	return id, multierr.Append(err, r.cascade.End())
}

func (r *Registry) insertCell(cell *ir.Cell, ord int) (ir.ID, error) {
	cell.Ord = 0
	id, err := r.index.Register(cell)
	if err != nil {
		return ir.InvalidID, err
	}
	pos := ord - 1
	if tree, ok := r.sorted[cell.ColumnID]; ok {
		k, err := r.keyOf(cell)
		if err != nil {
			return ir.InvalidID, err
		}
		pos = tree.rank(k)
		tree.insert(k)
	}
	r.cells[cell.ColumnID] = slices.Insert(r.cells[cell.ColumnID], pos, id)
	cell.Ord = pos + 1
	return id, r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventCellInserted,
		ElementID: id,
		ColumnID:  cell.ColumnID,
		New:       cell.Clone(),
	})
}

// AppendCell inserts cell after the last cell of its column.
func (r *Registry) AppendCell(cell *ir.Cell) (ir.ID, error) {
	return r.InsertCell(cell, len(r.cells[cell.ColumnID])+1)
}

// ReplaceCell substitutes a stored cell. Column, kind and, for reference
// cells, target are fixed.
func (r *Registry) ReplaceCell(cell *ir.Cell) error {
	const op = "column.replace_cell"
	old, err := r.Cell(cell.ID)
	if err != nil {
		return err
	}
	if cell.ColumnID != old.ColumnID || cell.Kind != old.Kind {
		return ir.ErrorfID(ir.CodeKindMismatch, op, cell.ID, "a cell cannot change column or kind")
	}
	if cell.Kind == ir.CellReference && cell.TargetID != old.TargetID {
		return ir.ErrorfID(ir.CodeInvalidArgument, op, cell.ID, "a reference cell cannot be retargeted")
	}

	if err := r.cascade.Start(); err != nil {
		return err
	}
	err = r.replaceCell(old, cell.Clone())
	return multierr.Append(err, r.cascade.End())
}

func (r *Registry) replaceCell(old, cell *ir.Cell) error {
	cell.Ord = 0
	if err := r.index.Replace(cell); err != nil {
		return err
	}
	if tree, ok := r.sorted[cell.ColumnID]; ok && cell.Onset.Compare(old.Onset) != 0 {
		tree.remove(key{onset: old.Onset, id: old.ID})
		tree.insert(key{onset: cell.Onset, id: cell.ID})
	}
	cell.Ord = old.Ord
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventCellChanged,
		ElementID: cell.ID,
		ColumnID:  cell.ColumnID,
		Old:       old,
		New:       cell,
	})
}

// RemoveCell deletes a cell. Ordinals of later cells shift down by one.
func (r *Registry) RemoveCell(id ir.ID) error {
	old, err := r.Cell(id)
	if err != nil {
		return err
	}
	if err := r.cascade.Start(); err != nil {
		return err
	}
	err = r.removeCell(old)
	return multierr.Append(err, r.cascade.End())
}

func (r *Registry) removeCell(old *ir.Cell) error {
	if err := r.index.Unregister(old.ID); err != nil {
		return err
	}
	ids := r.cells[old.ColumnID]
	pos := slices.Index(ids, old.ID)
	if pos < 0 {
		return ir.Internalf("column: cell %d missing from column %d", old.ID, old.ColumnID)
	}
	r.cells[old.ColumnID] = slices.Delete(ids, pos, pos+1)
	if tree, ok := r.sorted[old.ColumnID]; ok {
		tree.removeID(old.ID)
	}
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventCellDeleted,
		ElementID: old.ID,
		ColumnID:  old.ColumnID,
		Old:       old,
	})
}

// Cell returns a copy of the cell with its current ordinal.
func (r *Registry) Cell(id ir.ID) (*ir.Cell, error) {
	const op = "column.cell"
	e, ok := r.index.Lookup(id)
	if !ok {
		return nil, ir.ErrorfID(ir.CodeNotFound, op, id, "no cell")
	}
	cell, ok := e.(*ir.Cell)
	if !ok {
		return nil, ir.ErrorfID(ir.CodeKindMismatch, op, id, "element is not a cell")
	}
	pos := slices.Index(r.cells[cell.ColumnID], id)
	if pos < 0 {
		return nil, ir.Internalf("column: cell %d missing from column %d", id, cell.ColumnID)
	}
	cell.Ord = pos + 1
	return cell, nil
}

// CellByOrd returns a copy of the cell at ordinal ord of a column.
func (r *Registry) CellByOrd(colID ir.ID, ord int) (*ir.Cell, error) {
	const op = "column.cell_by_ord"
	ids, ok := r.cells[colID]
	if !ok {
		return nil, ir.ErrorfID(ir.CodeNotFound, op, colID, "no column")
	}
	if ord < 1 || ord > len(ids) {
		return nil, ir.ErrorfID(ir.CodeOutOfRange, op, colID, "ordinal %d out of range [1,%d]", ord, len(ids))
	}
	cell, err := index.ResolveAs[*ir.Cell](r.index, ids[ord-1])
	if err != nil {
		return nil, err
	}
	cell.Ord = ord
	return cell, nil
}

// CellIDs returns the cell ids of a column in order.
func (r *Registry) CellIDs(colID ir.ID) ([]ir.ID, error) {
	ids, ok := r.cells[colID]
	if !ok {
		return nil, ir.ErrorfID(ir.CodeNotFound, "column.cell_ids", colID, "no column")
	}
	return slices.Clone(ids), nil
}

// NumCells returns the number of cells in a column.
func (r *Registry) NumCells(colID ir.ID) (int, error) {
	ids, ok := r.cells[colID]
	if !ok {
		return 0, ir.ErrorfID(ir.CodeNotFound, "column.num_cells", colID, "no column")
	}
	return len(ids), nil
}

func checkCellKind(op string, col *ir.Column, cell *ir.Cell) error {
	switch {
	case col.Kind == ir.ColumnData && cell.Kind == ir.CellData:
		if cell.Value.VocabID != col.VocabID {
			return ir.ErrorfID(ir.CodeTypeMismatch, op, col.ID, "matrix is not shaped by column %q", col.Name)
		}
	case col.Kind == ir.ColumnReference && cell.Kind == ir.CellReference:
		if !cell.TargetID.Valid() {
			return ir.Errorf(ir.CodeInvalidArgument, op, "reference cell needs a target")
		}
	default:
		return ir.ErrorfID(ir.CodeKindMismatch, op, col.ID, "cell kind does not match %s column %q", col.Kind, col.Name)
	}
	return nil
}
