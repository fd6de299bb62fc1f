package cascade

import (
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// ListenerID identifies one registration. IDs are never reused.
type ListenerID uint64

type listenerSet uint8

const (
	setInternal listenerSet = iota + 1
	setExternal
	setScoped
)

type listener struct {
	id    ListenerID
	set   listenerSet
	scope ir.ID
	h     Handler
}

// Dispatcher counts cascade nesting and fans events out to listeners.
//
// The dispatcher is single-writer: it belongs to one database image and is
// driven from one goroutine. Listeners run synchronously on that goroutine
// and may register or deregister listeners while handling an event; the
// change takes effect from the next event.
type Dispatcher struct {
	depth int
	token string

	clock Sequencer
	gen   TokenGenerator
	log   *zap.Logger

	nextID   ListenerID
	internal []listener
	external []listener
	scoped   map[ir.ID][]listener
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// Sequencer hands out strictly increasing sequence numbers. Implemented
// by Clock and testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
	Current() int64
}

// WithClock sets the logical clock. Default: NewClock().
func WithClock(c Sequencer) Option {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// WithTokenGenerator sets the cascade token source. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(d *Dispatcher) {
		d.gen = g
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher returns a dispatcher at depth 0 with no listeners.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		clock:  NewClock(),
		gen:    UUIDv7Generator{},
		log:    zap.NewNop(),
		scoped: make(map[ir.ID][]listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Depth returns the current nesting count.
func (d *Dispatcher) Depth() int {
	return d.depth
}

// Token returns the token of the open outermost cascade, or "".
func (d *Dispatcher) Token() string {
	return d.token
}

// Clock returns the dispatcher's logical clock.
func (d *Dispatcher) Clock() Sequencer {
	return d.clock
}

// RegisterInternal adds a listener that maintains in-process derived state.
func (d *Dispatcher) RegisterInternal(h Handler) ListenerID {
	d.nextID++
	d.internal = append(d.internal, listener{id: d.nextID, set: setInternal, h: h})
	return d.nextID
}

// RegisterExternal adds an observer.
func (d *Dispatcher) RegisterExternal(h Handler) ListenerID {
	d.nextID++
	d.external = append(d.external, listener{id: d.nextID, set: setExternal, h: h})
	return d.nextID
}

// Listen adds an observer for change events about one element. Listening
// on a column id also delivers the events of the column's cells.
func (d *Dispatcher) Listen(elementID ir.ID, h Handler) ListenerID {
	d.nextID++
	d.scoped[elementID] = append(d.scoped[elementID], listener{id: d.nextID, set: setScoped, scope: elementID, h: h})
	return d.nextID
}

// Deregister removes one registration by id.
func (d *Dispatcher) Deregister(id ListenerID) error {
	match := func(l listener) bool { return l.id == id }
	if n := len(d.internal); removeFunc(&d.internal, match) < n {
		return nil
	}
	if n := len(d.external); removeFunc(&d.external, match) < n {
		return nil
	}
	for scope, ls := range d.scoped {
		if n := len(ls); removeFunc(&ls, match) < n {
			d.setScoped(scope, ls)
			return nil
		}
	}
	return ir.Errorf(ir.CodeNotFound, "cascade.deregister", "no listener %d", id)
}

// DeregisterHandler removes every registration of h, in any set. h must be
// comparable; register function adapters by id instead.
func (d *Dispatcher) DeregisterHandler(h Handler) error {
	const op = "cascade.deregister_handler"
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return ir.Errorf(ir.CodeInvalidArgument, op, "handler of type %T is not comparable", h)
	}
	match := func(l listener) bool {
		return reflect.TypeOf(l.h).Comparable() && l.h == h
	}
	removed := len(d.internal) + len(d.external)
	removed -= removeFunc(&d.internal, match) + removeFunc(&d.external, match)
	for scope, ls := range d.scoped {
		n := len(ls)
		removed += n - removeFunc(&ls, match)
		d.setScoped(scope, ls)
	}
	if removed == 0 {
		return ir.Errorf(ir.CodeNotFound, op, "handler %T is not registered", h)
	}
	return nil
}

func (d *Dispatcher) setScoped(scope ir.ID, ls []listener) {
	if len(ls) == 0 {
		delete(d.scoped, scope)
		return
	}
	d.scoped[scope] = ls
}

func removeFunc(ls *[]listener, match func(listener) bool) int {
	*ls = slices.DeleteFunc(*ls, match)
	return len(*ls)
}

// Start opens a cascade. Only the outermost call mints a token and
// announces the begin event.
func (d *Dispatcher) Start() error {
	d.depth++
	if d.depth > 1 {
		return nil
	}
	d.token = d.gen.Generate()
	d.log.Debug("cascade begin", zap.String("token", d.token))
	if err := d.bracket(EventCascadeBegin); err != nil {
		// The caller sees the failure and will not call End.
		d.depth--
		d.token = ""
		return err
	}
	return nil
}

// End closes a cascade. Only the call returning the depth to zero
// announces the end event. An End without a matching Start is an
// internal-consistency failure.
func (d *Dispatcher) End() error {
	if d.depth == 0 {
		return ir.Internalf("cascade: end without matching start")
	}
	d.depth--
	if d.depth > 0 {
		return nil
	}
	err := d.bracket(EventCascadeEnd)
	d.log.Debug("cascade end", zap.String("token", d.token))
	d.token = ""
	return err
}

func (d *Dispatcher) bracket(kind EventKind) error {
	ev := Event{Kind: kind, Seq: d.clock.Next(), Token: d.token}
	if err := d.deliverInternal(ev); err != nil {
		return err
	}
	d.deliverObservers(slices.Clone(d.external), ev)
	return nil
}

// Notify delivers a change event. Change events are only legal inside a
// cascade.
func (d *Dispatcher) Notify(ev Event) error {
	if d.depth == 0 {
		return ir.Internalf("cascade: %s for element %d outside a cascade", ev.Kind, ev.ElementID)
	}
	if ev.Bracket() {
		return ir.Internalf("cascade: %s cannot be notified directly", ev.Kind)
	}
	ev.Seq = d.clock.Next()
	ev.Token = d.token

	d.log.Debug("event",
		zap.Stringer("kind", ev.Kind),
		zap.Int64("seq", ev.Seq),
		zap.Int64("element_id", int64(ev.ElementID)))

	scoped := slices.Clone(d.scoped[ev.ElementID])
	if ev.ColumnID.Valid() && ev.ColumnID != ev.ElementID {
		scoped = append(scoped, d.scoped[ev.ColumnID]...)
	}
	d.deliverObservers(scoped, ev)
	if err := d.deliverInternal(ev); err != nil {
		return err
	}
	d.deliverObservers(slices.Clone(d.external), ev)
	return nil
}

func (d *Dispatcher) deliverInternal(ev Event) error {
	for _, l := range slices.Clone(d.internal) {
		if err := l.h.HandleEvent(ev.clone()); err != nil {
			if ir.IsInternal(err) {
				return err
			}
			return errors.WithAssertionFailure(errors.Wrapf(err, "cascade: internal listener %d on %s", l.id, ev.Kind))
		}
	}
	return nil
}

func (d *Dispatcher) deliverObservers(ls []listener, ev Event) {
	for _, l := range ls {
		if err := observe(l.h, ev.clone()); err != nil {
			d.log.Warn("listener failed",
				zap.Uint64("listener", uint64(l.id)),
				zap.Stringer("kind", ev.Kind),
				zap.Error(err))
		}
	}
}

// observe runs one observer, turning a panic into an error so that the
// remaining observers still see the event.
func observe(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("listener panicked: %v", r)
		}
	}()
	return h.HandleEvent(ev)
}
