package store_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/db"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/store"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/testutil"
)

func journaledDB(t *testing.T) (*db.Database, *store.Store, *store.Recorder) {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d, err := db.New("journaled",
		db.WithClock(testutil.NewDeterministicClock()),
		db.WithTokenGenerator(testutil.NewSequenceGenerator("")))
	require.NoError(t, err)

	rec := store.NewRecorder(s, d.Name())
	d.RegisterListener(rec)
	return d, s, rec
}

func kinds(events []store.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.KindName
	}
	return out
}

func TestRecorderJournalsCascades(t *testing.T) {
	ctx := context.Background()
	d, s, rec := journaledDB(t)

	colID, err := d.AddColumn("trial", ir.MatrixInteger)
	require.NoError(t, err)
	cell, err := d.NewCell(colID)
	require.NoError(t, err)
	cellID, err := d.AppendCell(cell)
	require.NoError(t, err)
	require.NoError(t, rec.Err())

	cascades, err := s.ReadCascades(ctx)
	require.NoError(t, err)
	require.Len(t, cascades, 2)
	assert.Equal(t, store.Cascade{Token: "cascade-1", Database: "journaled", BeginSeq: 1, EndSeq: 4}, cascades[0])
	assert.Equal(t, store.Cascade{Token: "cascade-2", Database: "journaled", BeginSeq: 5, EndSeq: 7}, cascades[1])

	events, err := s.ReadEvents(ctx, "cascade-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vocab_added", "column_added"}, kinds(events))

	events, err = s.ReadEvents(ctx, "cascade-2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, cascade.EventCellInserted, ev.Kind)
	assert.Equal(t, cellID, ev.ElementID)
	assert.Equal(t, colID, ev.ColumnID)
	assert.Equal(t, int64(6), ev.Seq)

	var payload struct {
		New struct {
			Type string `json:"type"`
			ID   int64  `json:"id"`
		} `json:"new"`
	}
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "cell", payload.New.Type)
	assert.Equal(t, int64(cellID), payload.New.ID)
}

func TestReadElementHistory(t *testing.T) {
	ctx := context.Background()
	d, s, rec := journaledDB(t)

	colID, err := d.AddColumn("trial", ir.MatrixNominal)
	require.NoError(t, err)
	cell, err := d.NewCell(colID)
	require.NoError(t, err)
	cellID, err := d.AppendCell(cell)
	require.NoError(t, err)
	require.NoError(t, d.RemoveCell(cellID))
	require.NoError(t, rec.Err())

	history, err := s.ReadElementHistory(ctx, cellID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cell_inserted", "cell_deleted"}, kinds(history))

	history, err = s.ReadElementHistory(ctx, colID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vocab_added", "column_added", "cell_inserted", "cell_deleted"}, kinds(history))
	for i := 1; i < len(history); i++ {
		assert.Less(t, history[i-1].Seq, history[i].Seq)
	}
}

func TestReadEventsUnknownToken(t *testing.T) {
	_, s, _ := journaledDB(t)
	events, err := s.ReadEvents(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = s.ReadCascade(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWriteEventIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.WriteCascadeBegin(ctx, "t", "db", 1))
	ev := cascade.Event{
		Kind:      cascade.EventColumnAdded,
		Seq:       2,
		Token:     "t",
		ElementID: 1,
		ColumnID:  1,
		New:       &ir.Column{ID: 1, Name: "c", Kind: ir.ColumnReference},
	}
	require.NoError(t, s.WriteEvent(ctx, ev))
	require.NoError(t, s.WriteEvent(ctx, ev))
	require.NoError(t, s.WriteCascadeEnd(ctx, "t", 3))

	events, err := s.ReadAllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	assert.Error(t, s.WriteCascadeEnd(ctx, "t", 4), "cascade already closed")
}

func TestRecorderKeepsFailures(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	core, logs := observer.New(zap.WarnLevel)
	rec := store.NewRecorder(s, "db", store.WithRecorderLogger(zap.New(core)), store.WithContext(ctx))

	// A change event for a cascade that was never opened violates the
	// foreign key on events.token.
	err = rec.HandleEvent(cascade.Event{
		Kind:      cascade.EventCellDeleted,
		Seq:       1,
		Token:     "orphan",
		ElementID: 5,
		Old:       &ir.Cell{ID: 5, ColumnID: 1, Kind: ir.CellReference, TargetID: 4},
	})
	assert.NoError(t, err)
	assert.Error(t, rec.Err())
	assert.Equal(t, 1, logs.FilterMessage("journal write failed").Len())
}
