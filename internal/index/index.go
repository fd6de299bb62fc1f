package index

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Index assigns and resolves identifiers for every stored element.
type Index struct {
	next  ir.ID
	elems map[ir.ID]ir.Element
	log   *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(x *Index) {
		x.log = log
	}
}

// New returns an empty index. The first identifier minted is 1.
func New(opts ...Option) *Index {
	x := &Index{
		elems: make(map[ir.ID]ir.Element),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Allocate mints a fresh identifier without registering anything under it.
// Used when an element and its children must know the id before the
// element itself is registered.
func (x *Index) Allocate() ir.ID {
	x.next++
	return x.next
}

// Register stores a copy of e. If e carries InvalidID a new identifier is
// minted and written back into e; otherwise the id must have come from
// Allocate and must not be in use.
func (x *Index) Register(e ir.Element) (ir.ID, error) {
	id := e.ElementID()
	switch {
	case id == ir.InvalidID:
		id = x.Allocate()
		e.SetElementID(id)
	case id < ir.InvalidID || id > x.next:
		return ir.InvalidID, ir.Internalf("index: register of id %d that was never allocated", id)
	default:
		if _, dup := x.elems[id]; dup {
			return ir.InvalidID, ir.Internalf("index: id %d already registered", id)
		}
	}
	x.elems[id] = e.CloneElement()
	x.log.Debug("registered element", zap.Int64("id", int64(id)), zap.String("type", typeName(e)))
	return id, nil
}

// Resolve returns a copy of the element registered under id. Unknown ids
// are internal-consistency failures: every id a component holds was handed
// out by this index.
func (x *Index) Resolve(id ir.ID) (ir.Element, error) {
	e, ok := x.elems[id]
	if !ok {
		return nil, ir.Internalf("index: id %d does not resolve", id)
	}
	return e.CloneElement(), nil
}

// Lookup is the caller-facing variant of Resolve: unknown ids report false.
func (x *Index) Lookup(id ir.ID) (ir.Element, bool) {
	e, ok := x.elems[id]
	if !ok {
		return nil, false
	}
	return e.CloneElement(), true
}

// Contains reports whether id is registered.
func (x *Index) Contains(id ir.ID) bool {
	_, ok := x.elems[id]
	return ok
}

// Replace substitutes the stored copy for e's id. The element type must
// not change.
func (x *Index) Replace(e ir.Element) error {
	id := e.ElementID()
	old, ok := x.elems[id]
	if !ok {
		return ir.Internalf("index: replace of unregistered id %d", id)
	}
	if typeName(old) != typeName(e) {
		return ir.Internalf("index: replace of %s %d with %s", typeName(old), id, typeName(e))
	}
	x.elems[id] = e.CloneElement()
	return nil
}

// Unregister drops id. The identifier is retired, never reissued.
func (x *Index) Unregister(id ir.ID) error {
	if _, ok := x.elems[id]; !ok {
		return ir.Internalf("index: unregister of unknown id %d", id)
	}
	delete(x.elems, id)
	x.log.Debug("unregistered element", zap.Int64("id", int64(id)))
	return nil
}

// Len returns the number of registered elements.
func (x *Index) Len() int {
	return len(x.elems)
}

// IDs returns every registered id, unordered.
func (x *Index) IDs() []ir.ID {
	ids := make([]ir.ID, 0, len(x.elems))
	for id := range x.elems {
		ids = append(ids, id)
	}
	return ids
}

// ResolveAs resolves id and asserts the element type. A type mismatch is
// an internal-consistency failure.
func ResolveAs[T ir.Element](x *Index, id ir.ID) (T, error) {
	var zero T
	e, err := x.Resolve(id)
	if err != nil {
		return zero, err
	}
	t, ok := e.(T)
	if !ok {
		return zero, ir.Internalf("index: id %d is %s, want %T", id, typeName(e), zero)
	}
	return t, nil
}

func typeName(e ir.Element) string {
	switch e.(type) {
	case *ir.VocabElement:
		return "vocab_element"
	case *ir.FormalArg:
		return "formal_arg"
	case *ir.Column:
		return "column"
	case *ir.Cell:
		return "cell"
	}
	return fmt.Sprintf("%T", e)
}
