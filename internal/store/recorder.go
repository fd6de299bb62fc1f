package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
)

// Recorder journals every cascade of one database. Register it as an
// external listener: a failed write is logged and kept for Err, and the
// database never sees it.
type Recorder struct {
	store    *Store
	database string
	ctx      context.Context
	log      *zap.Logger
	err      error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the logger used for write failures.
func WithRecorderLogger(log *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		r.log = log
	}
}

// WithContext sets the context used for journal writes.
func WithContext(ctx context.Context) RecorderOption {
	return func(r *Recorder) {
		r.ctx = ctx
	}
}

// NewRecorder returns a Recorder writing cascades of the named database.
func NewRecorder(s *Store, database string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:    s,
		database: database,
		ctx:      context.Background(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Err returns every write failure seen so far, combined.
func (r *Recorder) Err() error {
	return r.err
}

// HandleEvent implements cascade.Handler. It always returns nil.
func (r *Recorder) HandleEvent(ev cascade.Event) error {
	var err error
	switch ev.Kind {
	case cascade.EventCascadeBegin:
		err = r.store.WriteCascadeBegin(r.ctx, ev.Token, r.database, ev.Seq)
	case cascade.EventCascadeEnd:
		err = r.store.WriteCascadeEnd(r.ctx, ev.Token, ev.Seq)
	default:
		err = r.store.WriteEvent(r.ctx, ev)
	}
	if err != nil {
		r.log.Warn("journal write failed",
			zap.String("token", ev.Token),
			zap.Stringer("kind", ev.Kind),
			zap.Int64("seq", ev.Seq),
			zap.Error(err))
		r.err = multierr.Append(r.err, err)
	}
	return nil
}

// WriteCascadeBegin opens a cascade row. A repeated write of the same
// token is ignored.
func (s *Store) WriteCascadeBegin(ctx context.Context, token, database string, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cascades (token, database, begin_seq)
		VALUES (?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, database, seq)
	return errors.Wrap(err, "write cascade begin")
}

// WriteCascadeEnd closes an open cascade row.
func (s *Store) WriteCascadeEnd(ctx context.Context, token string, seq int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE cascades SET end_seq = ? WHERE token = ? AND end_seq IS NULL
	`, seq, token)
	if err != nil {
		return errors.Wrap(err, "write cascade end")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "write cascade end")
	}
	if n == 0 {
		return errors.Newf("write cascade end: no open cascade %q", token)
	}
	return nil
}

// WriteEvent appends one change event. Event ids are content addressed,
// so writing the same event twice leaves one row.
func (s *Store) WriteEvent(ctx context.Context, ev cascade.Event) error {
	if ev.Bracket() {
		return errors.AssertionFailedf("write event: %s is a cascade bracket", ev.Kind)
	}
	kind := ev.Kind.String()
	id, err := eventID(ev.Token, ev.Seq, kind, int64(ev.ElementID))
	if err != nil {
		return errors.Wrap(err, "write event")
	}
	payload, err := eventPayload(ev)
	if err != nil {
		return errors.Wrapf(err, "write event %s", kind)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, token, seq, kind, element_id, column_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, ev.Token, ev.Seq, kind, int64(ev.ElementID), int64(ev.ColumnID), string(payload))
	return errors.Wrap(err, "write event")
}
