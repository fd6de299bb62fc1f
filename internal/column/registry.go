package column

import (
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// NameSpace reports vocabulary element names, which share the name space
// with columns.
type NameSpace interface {
	NameOwner(name string) (ir.ID, bool)
}

// Registry holds the columns of one database image.
type Registry struct {
	index   *index.Index
	cascade *cascade.Dispatcher
	names   NameSpace
	log     *zap.Logger

	byName map[string]ir.ID
	order  []ir.ID
	cells  map[ir.ID][]ir.ID

	temporal bool
	sorted   map[ir.ID]*onsetTree
	dirty    map[ir.ID]bool
	listener cascade.ListenerID
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithNameSpace sets the vocabulary name space consulted on add and rename.
func WithNameSpace(ns NameSpace) Option {
	return func(r *Registry) {
		r.names = ns
	}
}

// New returns an empty registry. The registry registers itself as an
// internal listener of d so it can re-sort at cascade end.
func New(x *index.Index, d *cascade.Dispatcher, opts ...Option) *Registry {
	r := &Registry{
		index:   x,
		cascade: d,
		names:   noNames{},
		log:     zap.NewNop(),
		byName:  make(map[string]ir.ID),
		cells:   make(map[ir.ID][]ir.ID),
		sorted:  make(map[ir.ID]*onsetTree),
		dirty:   make(map[ir.ID]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.listener = d.RegisterInternal(r)
	return r
}

// SetNameSpace wires the vocabulary name space after construction.
func (r *Registry) SetNameSpace(ns NameSpace) { r.names = ns }

// ColumnNameOwner returns the id of the column called name.
func (r *Registry) ColumnNameOwner(name string) (ir.ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

func (r *Registry) checkName(op string, col *ir.Column) error {
	if !ir.IsValidSVarName(col.Name) {
		return ir.Errorf(ir.CodeInvalidName, op, "invalid column name %q", col.Name)
	}
	if owner, ok := r.byName[col.Name]; ok && owner != col.ID {
		return ir.ErrorfID(ir.CodeDuplicateName, op, owner, "name %q already used by a column", col.Name)
	}
	if owner, ok := r.names.NameOwner(col.Name); ok && (col.Kind != ir.ColumnData || owner != col.VocabID) {
		return ir.ErrorfID(ir.CodeDuplicateName, op, owner, "name %q already used by a vocabulary element", col.Name)
	}
	return nil
}

// Add registers a column. col.ID is either InvalidID or an id reserved
// with the index's Allocate, which lets the database create the backing
// matrix element first. A data column names its matrix element in VocabID.
func (r *Registry) Add(col *ir.Column) (ir.ID, error) {
	const op = "column.add"
	switch col.Kind {
	case ir.ColumnData:
		if !col.VocabID.Valid() {
			return ir.InvalidID, ir.Errorf(ir.CodeInvalidArgument, op, "data column %q needs a matrix element", col.Name)
		}
	case ir.ColumnReference:
		if col.VocabID.Valid() {
			return ir.InvalidID, ir.Errorf(ir.CodeInvalidArgument, op, "reference column %q has no matrix element", col.Name)
		}
	default:
		return ir.InvalidID, ir.Errorf(ir.CodeInvalidArgument, op, "unknown column kind %d", col.Kind)
	}
	if err := r.checkName(op, col); err != nil {
		return ir.InvalidID, err
	}

	if err := r.cascade.Start(); err != nil {
		return ir.InvalidID, err
	}
	id, err := r.add(col)
	return id, multierr.Append(err, r.cascade.End())
}

func (r *Registry) add(col *ir.Column) (ir.ID, error) {
	id, err := r.index.Register(col)
	if err != nil {
		return ir.InvalidID, err
	}
	r.byName[col.Name] = id
	r.order = append(r.order, id)
	r.cells[id] = nil
	if r.temporal {
		r.sorted[id] = newOnsetTree()
	}
	r.log.Info("column added", zap.Int64("id", int64(id)), zap.String("name", col.Name), zap.Stringer("kind", col.Kind))
	return id, r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventColumnAdded,
		ElementID: id,
		ColumnID:  id,
		New:       col.Clone(),
	})
}

// Replace substitutes a column's name or hidden flag. Kind, matrix element
// and matrix type are fixed. The database keeps a data column's name in
// lockstep with its matrix element's.
func (r *Registry) Replace(col *ir.Column) error {
	const op = "column.replace"
	old, err := r.Get(col.ID)
	if err != nil {
		return err
	}
	if col.Kind != old.Kind || col.VocabID != old.VocabID || col.MatrixType != old.MatrixType {
		return ir.ErrorfID(ir.CodeKindMismatch, op, col.ID, "kind and matrix element of a column are fixed")
	}
	if *col == *old {
		return nil
	}
	if col.Name != old.Name {
		if err := r.checkName(op, col); err != nil {
			return err
		}
	}

	if err := r.cascade.Start(); err != nil {
		return err
	}
	err = r.replace(old, col.Clone())
	return multierr.Append(err, r.cascade.End())
}

func (r *Registry) replace(old, col *ir.Column) error {
	if err := r.index.Replace(col); err != nil {
		return err
	}
	if col.Name != old.Name {
		delete(r.byName, old.Name)
		r.byName[col.Name] = col.ID
	}
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventColumnChanged,
		ElementID: col.ID,
		ColumnID:  col.ID,
		Old:       old,
		New:       col.Clone(),
	})
}

// Remove deletes an empty column.
func (r *Registry) Remove(id ir.ID) error {
	const op = "column.remove"
	old, err := r.Get(id)
	if err != nil {
		return err
	}
	if n := len(r.cells[id]); n > 0 {
		return ir.ErrorfID(ir.CodeNotEmpty, op, id, "column %q still has %d cells", old.Name, n)
	}

	if err := r.cascade.Start(); err != nil {
		return err
	}
	err = r.remove(old)
	return multierr.Append(err, r.cascade.End())
}

func (r *Registry) remove(old *ir.Column) error {
	if err := r.index.Unregister(old.ID); err != nil {
		return err
	}
	delete(r.byName, old.Name)
	delete(r.cells, old.ID)
	delete(r.sorted, old.ID)
	delete(r.dirty, old.ID)
	r.order = slices.DeleteFunc(r.order, func(id ir.ID) bool { return id == old.ID })
	r.log.Info("column removed", zap.Int64("id", int64(old.ID)), zap.String("name", old.Name))
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventColumnDeleted,
		ElementID: old.ID,
		ColumnID:  old.ID,
		Old:       old,
	})
}

// Get returns a copy of the column.
func (r *Registry) Get(id ir.ID) (*ir.Column, error) {
	if _, ok := r.cells[id]; !ok {
		return nil, ir.ErrorfID(ir.CodeNotFound, "column.get", id, "no column")
	}
	return index.ResolveAs[*ir.Column](r.index, id)
}

// GetByName returns a copy of the named column.
func (r *Registry) GetByName(name string) (*ir.Column, error) {
	id, ok := r.byName[name]
	if !ok {
		return nil, ir.Errorf(ir.CodeNotFound, "column.get_by_name", "no column %q", name)
	}
	return index.ResolveAs[*ir.Column](r.index, id)
}

// Exists reports whether id is a registered column.
func (r *Registry) Exists(id ir.ID) bool {
	_, ok := r.cells[id]
	return ok
}

// List returns copies of the columns of the given kind (0 for all) in
// creation order.
func (r *Registry) List(kind ir.ColumnKind) ([]*ir.Column, error) {
	var out []*ir.Column
	for _, id := range r.order {
		col, err := index.ResolveAs[*ir.Column](r.index, id)
		if err != nil {
			return nil, err
		}
		if kind == 0 || col.Kind == kind {
			out = append(out, col)
		}
	}
	return out, nil
}

// IDs returns the column ids in creation order.
func (r *Registry) IDs() []ir.ID {
	return slices.Clone(r.order)
}

// Len returns the number of columns.
func (r *Registry) Len() int {
	return len(r.order)
}

// HandleEvent keeps temporal order. Cell events mark their column dirty;
// reference columns are marked on every data cell change since their
// order follows their targets. Dirty columns are re-sorted at cascade end.
func (r *Registry) HandleEvent(ev cascade.Event) error {
	if !r.temporal {
		return nil
	}
	switch ev.Kind {
	case cascade.EventCellInserted, cascade.EventCellChanged, cascade.EventCellDeleted:
		r.dirty[ev.ColumnID] = true
		for _, id := range r.order {
			if col, err := index.ResolveAs[*ir.Column](r.index, id); err == nil && col.Kind == ir.ColumnReference {
				r.dirty[id] = true
			}
		}
	case cascade.EventCascadeEnd:
		return r.resortDirty()
	}
	return nil
}

func (r *Registry) resortDirty() error {
	for _, id := range r.order {
		if !r.dirty[id] {
			continue
		}
		if err := r.resort(id); err != nil {
			return errors.Wrapf(err, "re-sorting column %d", id)
		}
	}
	clear(r.dirty)
	return nil
}

type noNames struct{}

func (noNames) NameOwner(string) (ir.ID, bool) { return ir.InvalidID, false }
