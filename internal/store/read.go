package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// Cascade is one journaled cascade. EndSeq is zero while the cascade is
// still open.
type Cascade struct {
	Token    string `json:"token"`
	Database string `json:"database"`
	BeginSeq int64  `json:"begin_seq"`
	EndSeq   int64  `json:"end_seq,omitempty"`
}

// Event is one journaled change event.
type Event struct {
	ID        string            `json:"id"`
	Token     string            `json:"token"`
	Seq       int64             `json:"seq"`
	Kind      cascade.EventKind `json:"-"`
	KindName  string            `json:"kind"`
	ElementID ir.ID             `json:"element_id"`
	ColumnID  ir.ID             `json:"column_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
}

// ReadCascades returns every cascade ordered by begin_seq, token.
func (s *Store) ReadCascades(ctx context.Context) ([]Cascade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, database, begin_seq, end_seq
		FROM cascades
		ORDER BY begin_seq ASC, token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query cascades")
	}
	defer rows.Close()

	cascades := []Cascade{}
	for rows.Next() {
		c, err := scanCascade(rows)
		if err != nil {
			return nil, err
		}
		cascades = append(cascades, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cascades")
	}
	return cascades, nil
}

// ReadCascade returns the cascade with the given token, or ErrNotFound.
func (s *Store) ReadCascade(ctx context.Context, token string) (Cascade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, database, begin_seq, end_seq
		FROM cascades
		WHERE token = ?
	`, token)
	c, err := scanCascade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Cascade{}, errors.Wrapf(ErrNotFound, "cascade %q", token)
	}
	return c, err
}

// ReadEvents returns the change events of one cascade in delivery order.
// Returns an empty slice, not nil, when the cascade recorded none.
func (s *Store) ReadEvents(ctx context.Context, token string) ([]Event, error) {
	return s.readEvents(ctx, `
		SELECT id, token, seq, kind, element_id, column_id, payload
		FROM events
		WHERE token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, token)
}

// ReadElementHistory returns every event that touched the element with the
// given id, across cascades, in delivery order. Cell events also match on
// their column id, so a column's history includes its cells.
func (s *Store) ReadElementHistory(ctx context.Context, id ir.ID) ([]Event, error) {
	return s.readEvents(ctx, `
		SELECT id, token, seq, kind, element_id, column_id, payload
		FROM events
		WHERE element_id = ? OR column_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, int64(id), int64(id))
}

// ReadAllEvents returns the whole journal in delivery order.
func (s *Store) ReadAllEvents(ctx context.Context) ([]Event, error) {
	return s.readEvents(ctx, `
		SELECT id, token, seq, kind, element_id, column_id, payload
		FROM events
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

func (s *Store) readEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate events")
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCascade(row scanner) (Cascade, error) {
	var c Cascade
	var end sql.NullInt64
	if err := row.Scan(&c.Token, &c.Database, &c.BeginSeq, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cascade{}, err
		}
		return Cascade{}, errors.Wrap(err, "scan cascade")
	}
	c.EndSeq = end.Int64
	return c, nil
}

func scanEvent(row scanner) (Event, error) {
	var ev Event
	var elementID, columnID int64
	var payload string
	if err := row.Scan(&ev.ID, &ev.Token, &ev.Seq, &ev.KindName, &elementID, &columnID, &payload); err != nil {
		return Event{}, errors.Wrap(err, "scan event")
	}
	kind, ok := cascade.ParseEventKind(ev.KindName)
	if !ok {
		return Event{}, errors.Newf("scan event %s: unknown kind %q", ev.ID, ev.KindName)
	}
	ev.Kind = kind
	ev.ElementID = ir.ID(elementID)
	ev.ColumnID = ir.ID(columnID)
	ev.Payload = json.RawMessage(payload)
	return ev, nil
}
