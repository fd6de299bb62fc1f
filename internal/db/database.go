package db

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/column"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/index"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/vocab"
)

// ErrImageBroken is returned by every mutating call once an internal
// consistency failure has been observed.
var ErrImageBroken = errors.New("database image is broken")

// Database is one single-writer database image.
type Database struct {
	name string
	tps  int64

	index   *index.Index
	cascade *cascade.Dispatcher
	vocab   *vocab.Registry
	columns *column.Registry

	log    *zap.Logger
	broken error

	// construction-time settings
	temporal bool
	clock    cascade.Sequencer
	gen      cascade.TokenGenerator
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(d *Database) {
		d.log = log
	}
}

// WithTicksPerSecond sets the rate of new time stamps. Default: ir.DefaultTPS.
func WithTicksPerSecond(tps int64) Option {
	return func(d *Database) {
		d.tps = tps
	}
}

// WithTemporalOrdering starts the image in temporal-ordering mode.
func WithTemporalOrdering(on bool) Option {
	return func(d *Database) {
		d.temporal = on
	}
}

// WithClock sets the logical clock stamping events.
func WithClock(c cascade.Sequencer) Option {
	return func(d *Database) {
		d.clock = c
	}
}

// WithTokenGenerator sets the cascade token source.
func WithTokenGenerator(g cascade.TokenGenerator) Option {
	return func(d *Database) {
		d.gen = g
	}
}

// New returns an empty database image.
func New(name string, opts ...Option) (*Database, error) {
	const op = "db.new"
	d := &Database{
		name:  name,
		tps:   ir.DefaultTPS,
		log:   zap.NewNop(),
		clock: cascade.NewClock(),
		gen:   cascade.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if !ir.IsValidSVarName(name) {
		return nil, ir.Errorf(ir.CodeInvalidName, op, "invalid database name %q", name)
	}
	if d.tps < ir.MinTPS || d.tps > ir.MaxTPS {
		return nil, ir.Errorf(ir.CodeOutOfRange, op, "ticks per second %d out of range [%d,%d]", d.tps, ir.MinTPS, ir.MaxTPS)
	}

	d.log = d.log.With(zap.String("database", name))
	d.index = index.New(index.WithLogger(d.log.Named("index")))
	d.cascade = cascade.NewDispatcher(
		cascade.WithClock(d.clock),
		cascade.WithTokenGenerator(d.gen),
		cascade.WithLogger(d.log.Named("cascade")),
	)
	d.vocab = vocab.New(d.index, d.cascade,
		vocab.WithLogger(d.log.Named("vocab")),
		vocab.WithTicksPerSecond(d.tps),
		vocab.WithDependents(d),
	)
	d.columns = column.New(d.index, d.cascade,
		column.WithLogger(d.log.Named("column")),
		column.WithNameSpace(d.vocab),
	)
	d.vocab.SetNameSpace(d.columns)

	if d.temporal {
		if err := d.columns.SetTemporalOrdering(true); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Name returns the database name.
func (d *Database) Name() string { return d.name }

// TicksPerSecond returns the rate of new time stamps.
func (d *Database) TicksPerSecond() int64 { return d.tps }

// Broken returns the failure that broke the image, or nil.
func (d *Database) Broken() error { return d.broken }

// mutate runs one mutating operation. Internal failures break the image.
func (d *Database) mutate(op string, fn func() error) error {
	if d.broken != nil {
		return errors.Wrapf(ErrImageBroken, "%s (cause: %v)", op, d.broken)
	}
	err := fn()
	if err != nil && ir.IsInternal(err) {
		d.broken = err
		d.log.Error("internal consistency failure; image is broken", zap.String("op", op), zap.Error(err))
	}
	return err
}

// inCascade runs fn inside one cascade so that observers see a single
// logical change.
func (d *Database) inCascade(fn func() error) (err error) {
	if err := d.cascade.Start(); err != nil {
		return err
	}
	defer func() {
		if endErr := d.cascade.End(); endErr != nil && err == nil {
			err = endErr
		}
	}()
	return fn()
}

// TemporalOrdering reports whether cells are kept sorted by onset.
func (d *Database) TemporalOrdering() bool {
	return d.columns.TemporalOrdering()
}

// SetTemporalOrdering switches the database-wide ordering mode.
func (d *Database) SetTemporalOrdering(on bool) error {
	return d.mutate("db.set_temporal_ordering", func() error {
		return d.columns.SetTemporalOrdering(on)
	})
}

// NameInUse reports whether name is taken by a vocabulary element or a
// column.
func (d *Database) NameInUse(name string) bool {
	return d.vocab.NameInUse(name)
}

// CascadeStart opens a caller-level cascade bundling several edits into one
// logical change. Every CascadeStart needs a matching CascadeEnd.
func (d *Database) CascadeStart() error {
	return d.mutate("db.cascade_start", d.cascade.Start)
}

// CascadeEnd closes a caller-level cascade.
func (d *Database) CascadeEnd() error {
	return d.mutate("db.cascade_end", d.cascade.End)
}

// RegisterListener adds an external observer of every event.
func (d *Database) RegisterListener(h cascade.Handler) cascade.ListenerID {
	return d.cascade.RegisterExternal(h)
}

// RegisterInternalListener adds an in-process listener whose failures are
// fatal to the edit that triggered them.
func (d *Database) RegisterInternalListener(h cascade.Handler) cascade.ListenerID {
	return d.cascade.RegisterInternal(h)
}

// ListenElement adds an observer of one element's change events. A column
// id also covers the column's cells.
func (d *Database) ListenElement(id ir.ID, h cascade.Handler) cascade.ListenerID {
	return d.cascade.Listen(id, h)
}

// DeregisterListener removes a registration by id.
func (d *Database) DeregisterListener(id cascade.ListenerID) error {
	return d.cascade.Deregister(id)
}

// DeregisterHandler removes every registration of h.
func (d *Database) DeregisterHandler(h cascade.Handler) error {
	return d.cascade.DeregisterHandler(h)
}
