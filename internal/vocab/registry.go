package vocab

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/propagate"
)

// NameSpace reports column names, which share the name space with
// vocabulary elements.
type NameSpace interface {
	// ColumnNameOwner returns the id of the column using name.
	ColumnNameOwner(name string) (ir.ID, bool)
}

// Dependents owns the values shaped by vocabulary elements.
type Dependents interface {
	// Propagate rewrites every value shaped by the edited element.
	Propagate(s *propagate.Script) error
	// Retarget clears every reference to an element about to be removed.
	Retarget(removed ir.ID) error
	// Renamed is called after a matrix element's name changed, so that its
	// column follows.
	Renamed(ve *ir.VocabElement) error
}

// SystemFilter selects elements by their system flag in List.
type SystemFilter uint8

const (
	AnySystem SystemFilter = iota
	OnlySystem
	NoSystem
)

// Registry holds the vocabulary elements of one database image.
type Registry struct {
	index   *index.Index
	cascade *cascade.Dispatcher
	names   NameSpace
	deps    Dependents
	tps     int64
	log     *zap.Logger

	byName map[string]ir.ID
	order  []ir.ID
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// WithNameSpace sets the column name space consulted on add and rename.
func WithNameSpace(ns NameSpace) Option {
	return func(r *Registry) {
		r.names = ns
	}
}

// WithDependents sets the owner of dependent values.
func WithDependents(d Dependents) Option {
	return func(r *Registry) {
		r.deps = d
	}
}

// WithTicksPerSecond sets the rate used for default time stamps.
func WithTicksPerSecond(tps int64) Option {
	return func(r *Registry) {
		r.tps = tps
	}
}

// New returns an empty registry registering its elements in x and
// bracketing its edits with d.
func New(x *index.Index, d *cascade.Dispatcher, opts ...Option) *Registry {
	r := &Registry{
		index:   x,
		cascade: d,
		names:   noNames{},
		deps:    noDependents{},
		tps:     ir.DefaultTPS,
		log:     zap.NewNop(),
		byName:  make(map[string]ir.ID),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetNameSpace wires the column name space after construction.
func (r *Registry) SetNameSpace(ns NameSpace) { r.names = ns }

// SetDependents wires the dependent-value owner after construction.
func (r *Registry) SetDependents(d Dependents) { r.deps = d }

// Add registers a new element and returns its id. ve must carry InvalidID,
// as must each of its formal arguments. On success the assigned ids are
// written back into ve.
func (r *Registry) Add(ve *ir.VocabElement) (ir.ID, error) {
	const op = "vocab.add"
	if ve.ID != ir.InvalidID {
		return ir.InvalidID, ir.ErrorfID(ir.CodeInvalidArgument, op, ve.ID, "element already has an id")
	}
	if err := r.checkName(op, ve, ir.InvalidID); err != nil {
		return ir.InvalidID, err
	}
	if ve.Kind == ir.VocabMatrix {
		_, fixed := ve.MatrixType.FixedKind()
		ve.System = fixed
	}
	if err := r.checkShape(op, ve, nil); err != nil {
		return ir.InvalidID, err
	}

	id := r.index.Allocate()
	ve.ID = id
	if err := r.cascade.Start(); err != nil {
		return ir.InvalidID, err
	}
	err := r.add(ve)
	return id, multierr.Append(err, r.cascade.End())
}

func (r *Registry) add(ve *ir.VocabElement) error {
	for i := range ve.Fargs {
		ve.Fargs[i].VocabID = ve.ID
		if _, err := r.index.Register(&ve.Fargs[i]); err != nil {
			return err
		}
	}
	if _, err := r.index.Register(ve); err != nil {
		return err
	}
	r.byName[ve.Name] = ve.ID
	r.order = append(r.order, ve.ID)
	r.log.Info("vocab element added",
		zap.Int64("id", int64(ve.ID)),
		zap.String("name", ve.Name),
		zap.Stringer("kind", ve.Kind))
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventVocabAdded,
		ElementID: ve.ID,
		ColumnID:  ve.ColumnID,
		New:       ve.Clone(),
	})
}

// Replace substitutes a user-editable element. The submitted element must
// have been produced from a copy of the stored one: arguments that keep
// their id are the same parameter, arguments with InvalidID are new.
func (r *Registry) Replace(ve *ir.VocabElement) error {
	const op = "vocab.replace"
	old, err := r.stored(op, ve.ID)
	if err != nil {
		return err
	}
	if old.System {
		return ir.ErrorfID(ir.CodeSystemElement, op, ve.ID, "%q is system owned", old.Name)
	}
	return r.replace(op, old, ve)
}

// ReplaceSystem substitutes any element, system-owned ones included. It is
// the path the database uses to rename a column's matrix element.
func (r *Registry) ReplaceSystem(ve *ir.VocabElement) error {
	const op = "vocab.replace_system"
	old, err := r.stored(op, ve.ID)
	if err != nil {
		return err
	}
	return r.replace(op, old, ve)
}

func (r *Registry) replace(op string, old, ve *ir.VocabElement) error {
	ve = ve.Clone()
	if ve.Kind != old.Kind {
		return ir.ErrorfID(ir.CodeKindMismatch, op, ve.ID, "cannot replace %s element with %s", old.Kind, ve.Kind)
	}
	if ve.ColumnID != old.ColumnID || ve.MatrixType != old.MatrixType || ve.System != old.System {
		return ir.ErrorfID(ir.CodeInvalidArgument, op, ve.ID, "column, matrix type and system flag are fixed")
	}
	if ve.Name != old.Name {
		if err := r.checkName(op, ve, ve.ID); err != nil {
			return err
		}
	}
	if err := r.checkShape(op, ve, old); err != nil {
		return err
	}
	for i := range ve.Fargs {
		ve.Fargs[i].VocabID = ve.ID
		if ve.Fargs[i].ID == ir.InvalidID {
			ve.Fargs[i].ID = r.index.Allocate()
		}
	}
	script, err := propagate.Diff(ve.ID, old.Fargs, ve.Fargs)
	if err != nil {
		return err
	}
	if ve.Name == old.Name && script.Empty() {
		return nil
	}

	if err := r.cascade.Start(); err != nil {
		return err
	}
	err = r.applyEdits(old, ve, script)
	return multierr.Append(err, r.cascade.End())
}

// applyEdits runs the rename and the argument-list edit as two separate
// edits, in that order.
func (r *Registry) applyEdits(old, ve *ir.VocabElement, script *propagate.Script) error {
	current := old
	if ve.Name != old.Name {
		renamed := old.Clone()
		renamed.Name = ve.Name
		if err := r.commit(current, renamed); err != nil {
			return err
		}
		delete(r.byName, old.Name)
		r.byName[renamed.Name] = renamed.ID
		if renamed.Kind == ir.VocabMatrix {
			if err := r.deps.Renamed(renamed.Clone()); err != nil {
				return err
			}
		}
		r.log.Info("vocab element renamed",
			zap.Int64("id", int64(ve.ID)),
			zap.String("from", old.Name),
			zap.String("to", renamed.Name))
		current = renamed
	}
	if script.Empty() {
		return nil
	}

	for _, ins := range script.Insertions {
		f := ins.Farg
		if _, err := r.index.Register(&f); err != nil {
			return err
		}
	}
	for _, rt := range script.Retypes {
		f := rt.New
		if err := r.index.Replace(&f); err != nil {
			return err
		}
	}
	for _, rn := range script.Renames {
		f := ve.Fargs[ve.ArgIndex(rn.FargID)]
		if err := r.index.Replace(&f); err != nil {
			return err
		}
	}
	for _, del := range script.Deletions {
		if err := r.index.Unregister(del.FargID); err != nil {
			return err
		}
	}

	// The new argument list is published before any cell is rewritten, so
	// listeners on cell_changed resolve the shape the cell now has.
	next := current.Clone()
	next.Fargs = ve.Clone().Fargs
	if err := r.commit(current, next); err != nil {
		return err
	}
	if !script.ShapeChanged() {
		return nil
	}
	r.log.Info("propagating argument edit",
		zap.Int64("vocab_id", int64(ve.ID)),
		zap.Int("deletions", len(script.Deletions)),
		zap.Int("insertions", len(script.Insertions)),
		zap.Int("moves", len(script.Moves)),
		zap.Int("retypes", len(script.Retypes)))
	if err := r.deps.Propagate(script); err != nil {
		return errors.Wrapf(err, "propagating edit of %q", ve.Name)
	}
	return nil
}

func (r *Registry) commit(old, next *ir.VocabElement) error {
	if err := r.index.Replace(next); err != nil {
		return err
	}
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventVocabChanged,
		ElementID: next.ID,
		ColumnID:  next.ColumnID,
		Old:       old.Clone(),
		New:       next.Clone(),
	})
}

// Remove deletes a predicate element. Every value referencing it, at any
// depth, is first retargeted to the empty value of its slot, and the
// element is dropped from every predicate subrange that lists it.
// Matrix elements go with their column: see RemoveMatrix.
func (r *Registry) Remove(id ir.ID) error {
	const op = "vocab.remove"
	old, err := r.stored(op, id)
	if err != nil {
		return err
	}
	if old.Kind == ir.VocabMatrix {
		return ir.ErrorfID(ir.CodeKindMismatch, op, id, "%q backs a column; remove the column instead", old.Name)
	}
	if old.System {
		return ir.ErrorfID(ir.CodeSystemElement, op, id, "%q is system owned", old.Name)
	}
	return r.remove(old)
}

// RemoveMatrix deletes a column's matrix element. The caller has already
// checked that the column is empty.
func (r *Registry) RemoveMatrix(id ir.ID) error {
	const op = "vocab.remove_matrix"
	old, err := r.stored(op, id)
	if err != nil {
		return err
	}
	if old.Kind != ir.VocabMatrix {
		return ir.ErrorfID(ir.CodeKindMismatch, op, id, "%q is not a matrix element", old.Name)
	}
	return r.remove(old)
}

func (r *Registry) remove(old *ir.VocabElement) error {
	if err := r.cascade.Start(); err != nil {
		return err
	}
	err := r.removeElement(old)
	return multierr.Append(err, r.cascade.End())
}

func (r *Registry) removeElement(old *ir.VocabElement) error {
	if err := r.deps.Retarget(old.ID); err != nil {
		return errors.Wrapf(err, "retargeting references to %q", old.Name)
	}
	if old.Kind == ir.VocabPredicate {
		if err := r.restrictPredicates(old.ID); err != nil {
			return err
		}
	}
	for _, f := range old.Fargs {
		if err := r.index.Unregister(f.ID); err != nil {
			return err
		}
	}
	if err := r.index.Unregister(old.ID); err != nil {
		return err
	}
	delete(r.byName, old.Name)
	r.order = removeID(r.order, old.ID)
	r.log.Info("vocab element removed", zap.Int64("id", int64(old.ID)), zap.String("name", old.Name))
	return r.cascade.Notify(cascade.Event{
		Kind:      cascade.EventVocabDeleted,
		ElementID: old.ID,
		ColumnID:  old.ColumnID,
		Old:       old,
	})
}

// restrictPredicates drops a removed predicate from every predicate
// subrange. Each affected element goes through the normal replace path, so
// the narrowing is a retype like any other.
func (r *Registry) restrictPredicates(removed ir.ID) error {
	for _, id := range append([]ir.ID(nil), r.order...) {
		ve, err := index.ResolveAs[*ir.VocabElement](r.index, id)
		if err != nil {
			return err
		}
		touched := false
		for i, f := range ve.Fargs {
			set, ok := f.Constraint.(ir.PredicateSet)
			if !ok || !set.Contains(removed) {
				continue
			}
			kept := make(ir.PredicateSet, 0, len(set)-1)
			for _, p := range set {
				if p != removed {
					kept = append(kept, p)
				}
			}
			ve.Fargs[i].Constraint = kept
			touched = true
		}
		if !touched {
			continue
		}
		old, err := index.ResolveAs[*ir.VocabElement](r.index, id)
		if err != nil {
			return err
		}
		script, err := propagate.Diff(id, old.Fargs, ve.Fargs)
		if err != nil {
			return err
		}
		if err := r.applyEdits(old, ve, script); err != nil {
			return err
		}
	}
	return nil
}

func removeID(ids []ir.ID, id ir.ID) []ir.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func (r *Registry) stored(op string, id ir.ID) (*ir.VocabElement, error) {
	if !r.Exists(id) {
		return nil, ir.ErrorfID(ir.CodeNotFound, op, id, "no vocabulary element")
	}
	return index.ResolveAs[*ir.VocabElement](r.index, id)
}

// Get returns a copy of the element.
func (r *Registry) Get(id ir.ID) (*ir.VocabElement, error) {
	return r.stored("vocab.get", id)
}

// GetByName returns a copy of the named element.
func (r *Registry) GetByName(name string) (*ir.VocabElement, error) {
	id, ok := r.byName[name]
	if !ok {
		return nil, ir.Errorf(ir.CodeNotFound, "vocab.get_by_name", "no vocabulary element %q", name)
	}
	return index.ResolveAs[*ir.VocabElement](r.index, id)
}

// Exists reports whether id is a registered vocabulary element.
func (r *Registry) Exists(id ir.ID) bool {
	e, ok := r.index.Lookup(id)
	if !ok {
		return false
	}
	ve, ok := e.(*ir.VocabElement)
	return ok && r.byName[ve.Name] == id
}

// ExistsName reports whether a vocabulary element is called name.
func (r *Registry) ExistsName(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// NameOwner returns the id of the vocabulary element called name.
func (r *Registry) NameOwner(name string) (ir.ID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// NameInUse reports whether name is taken by any vocabulary element or
// column.
func (r *Registry) NameInUse(name string) bool {
	if r.ExistsName(name) {
		return true
	}
	_, ok := r.names.ColumnNameOwner(name)
	return ok
}

// List returns copies of the elements of the given kind (0 for both) in
// insertion order.
func (r *Registry) List(kind ir.VocabKind, filter SystemFilter) ([]*ir.VocabElement, error) {
	var out []*ir.VocabElement
	for _, id := range r.order {
		ve, err := index.ResolveAs[*ir.VocabElement](r.index, id)
		if err != nil {
			return nil, err
		}
		if kind != 0 && ve.Kind != kind {
			continue
		}
		if (filter == OnlySystem && !ve.System) || (filter == NoSystem && ve.System) {
			continue
		}
		out = append(out, ve)
	}
	return out, nil
}

// Len returns the number of registered elements.
func (r *Registry) Len() int {
	return len(r.order)
}

type noNames struct{}

func (noNames) ColumnNameOwner(string) (ir.ID, bool) { return ir.InvalidID, false }

type noDependents struct{}

func (noDependents) Propagate(*propagate.Script) error { return nil }
func (noDependents) Retarget(ir.ID) error              { return nil }
func (noDependents) Renamed(*ir.VocabElement) error    { return nil }
