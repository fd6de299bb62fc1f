package column

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// key orders cells by onset, then by id so that equal onsets keep
// creation order.
type key struct {
	onset ir.TimeStamp
	id    ir.ID
}

func lessKey(a, b key) bool {
	if c := a.onset.Compare(b.onset); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

type onsetTree struct {
	t    *btree.BTreeG[key]
	byID map[ir.ID]key
}

func newOnsetTree() *onsetTree {
	return &onsetTree{t: btree.NewG(2, lessKey), byID: make(map[ir.ID]key)}
}

func (o *onsetTree) insert(k key) {
	o.t.ReplaceOrInsert(k)
	o.byID[k.id] = k
}

func (o *onsetTree) remove(k key) {
	o.t.Delete(k)
	delete(o.byID, k.id)
}

func (o *onsetTree) removeID(id ir.ID) {
	if k, ok := o.byID[id]; ok {
		o.remove(k)
	}
}

// rank is the number of keys ordered before k.
func (o *onsetTree) rank(k key) int {
	n := 0
	o.t.AscendLessThan(k, func(key) bool {
		n++
		return true
	})
	return n
}

func (o *onsetTree) ids() []ir.ID {
	out := make([]ir.ID, 0, o.t.Len())
	o.t.Ascend(func(k key) bool {
		out = append(out, k.id)
		return true
	})
	return out
}

// keyOf returns the sort key of a cell. Reference cells borrow the onset
// of their target.
func (r *Registry) keyOf(cell *ir.Cell) (key, error) {
	if cell.Kind != ir.CellReference {
		return key{onset: cell.Onset, id: cell.ID}, nil
	}
	target, err := index.ResolveAs[*ir.Cell](r.index, cell.TargetID)
	if err != nil {
		return key{}, err
	}
	return key{onset: target.Onset, id: cell.ID}, nil
}

// resort rebuilds a column's tree from its cells and re-derives the cell
// order from it.
func (r *Registry) resort(colID ir.ID) error {
	tree := newOnsetTree()
	for _, id := range r.cells[colID] {
		cell, err := index.ResolveAs[*ir.Cell](r.index, id)
		if err != nil {
			return err
		}
		k, err := r.keyOf(cell)
		if err != nil {
			return err
		}
		tree.insert(k)
	}
	ids := tree.ids()
	if !slices.Equal(ids, r.cells[colID]) {
		r.log.Debug("column re-sorted by onset", zap.Int64("column_id", int64(colID)), zap.Int("cells", len(ids)))
	}
	r.cells[colID] = ids
	r.sorted[colID] = tree
	return nil
}

// CheckOrder verifies that a column's cells are sorted by onset and that
// its onset tree holds exactly those cells under their current keys. It
// reports nothing when temporal ordering is off, and skips a column still
// waiting for its re-sort at cascade end.
func (r *Registry) CheckOrder(colID ir.ID) error {
	if !r.temporal || r.dirty[colID] {
		return nil
	}
	ids, ok := r.cells[colID]
	if !ok {
		return errors.Newf("column %d has no cell list", colID)
	}
	tree, ok := r.sorted[colID]
	if !ok {
		return errors.Newf("column %d has no onset tree", colID)
	}
	if got := tree.ids(); !slices.Equal(got, ids) {
		return errors.Newf("column %d: onset tree holds %v, cells are %v", colID, got, ids)
	}
	var prev key
	for i, id := range ids {
		cell, err := index.ResolveAs[*ir.Cell](r.index, id)
		if err != nil {
			return err
		}
		k, err := r.keyOf(cell)
		if err != nil {
			return err
		}
		if stored := tree.byID[id]; stored.onset.Compare(k.onset) != 0 {
			return errors.Newf("column %d: cell %d is filed under a stale onset", colID, id)
		}
		if i > 0 && lessKey(k, prev) {
			return errors.Newf("column %d: cell %d sorts before its predecessor", colID, id)
		}
		prev = k
	}
	return nil
}

// TemporalOrdering reports whether cells are kept sorted by onset.
func (r *Registry) TemporalOrdering() bool {
	return r.temporal
}

// SetTemporalOrdering switches the ordering mode. Turning it on re-sorts
// every column by onset; turning it off keeps the current order and lets
// later inserts use explicit ordinals again.
func (r *Registry) SetTemporalOrdering(on bool) error {
	if on == r.temporal {
		return nil
	}
	if err := r.cascade.Start(); err != nil {
		return err
	}
	r.temporal = on
	var err error
	if on {
		for _, id := range r.order {
			if err = r.resort(id); err != nil {
				break
			}
		}
	} else {
		clear(r.sorted)
		clear(r.dirty)
	}
	r.log.Info("temporal ordering", zap.Bool("enabled", on))
	return multierr.Append(err, r.cascade.End())
}
