package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/compiler"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/db"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/format"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/store"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/testutil"
)

// DefaultDatabaseName names the database of a scenario that sets none.
const DefaultDatabaseName = "scenario"

// Option configures a run.
type Option func(*config)

type config struct {
	journal string
	log     *zap.Logger
	ctx     context.Context
}

// WithJournal records the run into the journal file at path instead of a
// private in-memory journal. Runs appended to an existing journal get
// fresh UUIDv7 cascade tokens.
func WithJournal(path string) Option {
	return func(c *config) {
		c.journal = path
	}
}

// WithLogger sets the logger handed to the database and the recorder.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithContext sets the context used for journal reads and writes.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// Harness executes one scenario.
type Harness struct {
	db       *db.Database
	store    *store.Store
	recorder *store.Recorder
	tokens   []string
	log      *zap.Logger
	ctx      context.Context
}

// Run executes a scenario against a fresh database and returns the
// result. The error return is reserved for failures outside the scenario's
// control: an unreadable journal, a spec that does not load, a database
// that cannot be created.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		journal: store.MemoryPath,
		log:     zap.NewNop(),
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(cfg.journal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal")
	}
	defer st.Close()

	name := scenario.Database
	if name == "" {
		name = DefaultDatabaseName
	}

	var gen cascade.TokenGenerator = testutil.NewSequenceGenerator("")
	if cfg.journal != store.MemoryPath {
		gen = cascade.UUIDv7Generator{}
	}

	dbOpts := []db.Option{
		db.WithLogger(cfg.log),
		db.WithClock(testutil.NewDeterministicClock()),
		db.WithTokenGenerator(gen),
		db.WithTemporalOrdering(scenario.TemporalOrdering),
	}
	if scenario.TicksPerSecond > 0 {
		dbOpts = append(dbOpts, db.WithTicksPerSecond(scenario.TicksPerSecond))
	}
	d, err := db.New(name, dbOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create database")
	}

	rec := store.NewRecorder(st, name,
		store.WithRecorderLogger(cfg.log),
		store.WithContext(cfg.ctx))
	h := &Harness{
		db:       d,
		store:    st,
		recorder: rec,
		log:      cfg.log,
		ctx:      cfg.ctx,
	}
	d.RegisterListener(h.recorder)
	d.RegisterListener(cascade.HandlerFunc(h.collectToken))

	for _, path := range scenario.Specs {
		spec, err := compiler.LoadVocab(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load spec %s", path)
		}
		if err := d.ApplySpec(spec); err != nil {
			return nil, errors.Wrapf(err, "failed to apply spec %s", path)
		}
	}

	result := NewResult()
	h.executeSteps(scenario.Steps, result)

	if err := h.recorder.Err(); err != nil {
		result.AddError(fmt.Sprintf("journal: %v", err))
	}
	if result.Trace, err = h.trace(); err != nil {
		return nil, err
	}
	if result.Dump, err = format.Database(d); err != nil {
		return nil, errors.Wrap(err, "failed to render database")
	}

	for _, aerr := range multierr.Errors(EvaluateAssertions(h, result, scenario.Assertions)) {
		result.AddError(aerr.Error())
	}
	return result, nil
}

func (h *Harness) collectToken(ev cascade.Event) error {
	if ev.Kind == cascade.EventCascadeBegin {
		h.tokens = append(h.tokens, ev.Token)
	}
	return nil
}

// trace reads back the change events of this run's cascades.
func (h *Harness) trace() ([]TraceEvent, error) {
	out := []TraceEvent{}
	for _, token := range h.tokens {
		events, err := h.store.ReadEvents(h.ctx, token)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read journal")
		}
		for _, ev := range events {
			out = append(out, TraceEvent{
				Seq:       ev.Seq,
				Token:     ev.Token,
				Kind:      ev.KindName,
				ElementID: int64(ev.ElementID),
			})
		}
	}
	return out, nil
}

// executeSteps runs steps in order. A broken database stops the run since
// every later step would fail the same way.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		err := h.execute(step)
		h.log.Debug("step executed",
			zap.Int("step", i),
			zap.String("action", step.name()),
			zap.Error(err))

		switch {
		case err == nil && step.ExpectError == "":
		case err == nil:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.name(), step.ExpectError))
		case step.ExpectError == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.name(), err))
		case string(ir.CodeOf(err)) != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, step.name(), step.ExpectError, err))
		}

		if broken := h.db.Broken(); broken != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: database broken: %v", i, step.name(), broken))
			return
		}
	}
}

func (h *Harness) execute(step Step) error {
	d := h.db
	switch {
	case step.AddPredicate != nil:
		return d.ApplySpec(&ir.VocabSpec{Predicates: []ir.PredicateDecl{*step.AddPredicate}})

	case step.AddColumn != nil:
		c := *step.AddColumn
		if c.Type == "" {
			c.Type = ir.MatrixMatrix.String()
		}
		return d.ApplySpec(&ir.VocabSpec{Columns: []ir.ColumnDecl{c}})

	case step.EditVocab != nil:
		return h.editVocab(step.EditVocab)

	case step.RemoveVocab != nil:
		ve, err := d.VocabElementByName(step.RemoveVocab.Name)
		if err != nil {
			return err
		}
		return d.RemoveVocabElement(ve.ID)

	case step.RemoveColumn != nil:
		col, err := d.ColumnByName(step.RemoveColumn.Name)
		if err != nil {
			return err
		}
		return d.RemoveColumn(col.ID)

	case step.AppendCell != nil:
		return h.addCell(step.AppendCell, false)

	case step.InsertCell != nil:
		return h.addCell(step.InsertCell, true)

	case step.ReplaceCell != nil:
		cell, err := h.cellAt(CellRef{Column: step.ReplaceCell.Column, Ord: step.ReplaceCell.Ord})
		if err != nil {
			return err
		}
		col, err := d.Column(cell.ColumnID)
		if err != nil {
			return err
		}
		if err := h.fill(col, cell, step.ReplaceCell); err != nil {
			return err
		}
		return d.ReplaceCell(cell)

	case step.RemoveCell != nil:
		cell, err := h.cellAt(*step.RemoveCell)
		if err != nil {
			return err
		}
		return d.RemoveCell(cell.ID)

	case step.SetTemporalOrdering != nil:
		return d.SetTemporalOrdering(*step.SetTemporalOrdering)
	}
	return ir.Errorf(ir.CodeInvalidArgument, "harness.step", "step has no action")
}

func (h *Harness) editVocab(ev *EditVocab) error {
	const op = "harness.edit_vocab"
	ve, err := h.db.VocabElementByName(ev.Name)
	if err != nil {
		return err
	}
	argPos := func(name string) (int, error) {
		pos := ve.ArgByName(bracketed(name))
		if pos < 0 {
			return 0, ir.Errorf(ir.CodeNotFound, op, "%s has no argument %s", ve.Name, bracketed(name))
		}
		return pos, nil
	}

	for _, edit := range ev.Ops {
		switch {
		case edit.Append != nil:
			f, err := h.db.DeclaredArg(*edit.Append)
			if err != nil {
				return err
			}
			ve.AppendArg(f)

		case edit.Insert != nil:
			f, err := h.db.DeclaredArg(edit.Insert.Arg)
			if err != nil {
				return err
			}
			if err := ve.InsertArg(f, edit.Insert.At); err != nil {
				return err
			}

		case edit.Delete != "":
			pos, err := argPos(edit.Delete)
			if err != nil {
				return err
			}
			if err := ve.DeleteArg(pos); err != nil {
				return err
			}

		case edit.Move != nil:
			pos, err := argPos(edit.Move.Arg)
			if err != nil {
				return err
			}
			if err := ve.MoveArg(pos, edit.Move.To); err != nil {
				return err
			}

		case edit.Retype != nil:
			rt := edit.Retype
			pos, err := argPos(rt.Arg)
			if err != nil {
				return err
			}
			f, err := h.db.DeclaredArg(ir.ArgDecl{
				Name:       ve.Fargs[pos].Name,
				Kind:       rt.Kind,
				Min:        rt.Min,
				Max:        rt.Max,
				Values:     rt.Values,
				Predicates: rt.Predicates,
			})
			if err != nil {
				return err
			}
			if err := ve.ReplaceArg(f, pos); err != nil {
				return err
			}

		case edit.RenameArg != nil:
			pos, err := argPos(edit.RenameArg.From)
			if err != nil {
				return err
			}
			ve.Fargs[pos].Name = bracketed(edit.RenameArg.To)
		}
	}
	if ev.Rename != "" {
		ve.Name = ev.Rename
	}
	return h.db.ReplaceVocabElement(ve)
}

func (h *Harness) addCell(ce *CellEdit, insert bool) error {
	d := h.db
	col, err := d.ColumnByName(ce.Column)
	if err != nil {
		return err
	}

	var cell *ir.Cell
	if col.Kind == ir.ColumnReference {
		if ce.Target == nil {
			return ir.Errorf(ir.CodeInvalidArgument, "harness.add_cell", "reference column %q needs a target", col.Name)
		}
		target, err := h.cellAt(*ce.Target)
		if err != nil {
			return err
		}
		if cell, err = d.NewReferenceCell(col.ID, target.ID); err != nil {
			return err
		}
	} else {
		if cell, err = d.NewCell(col.ID); err != nil {
			return err
		}
		if err := h.fill(col, cell, ce); err != nil {
			return err
		}
	}

	if insert {
		_, err = d.InsertCell(cell, ce.Ord)
	} else {
		_, err = d.AppendCell(cell)
	}
	return err
}

// fill applies the time stamps, comment and values of ce to a data cell.
func (h *Harness) fill(col *ir.Column, cell *ir.Cell, ce *CellEdit) error {
	tps := h.db.TicksPerSecond()
	for _, ts := range []struct {
		text string
		dst  *ir.TimeStamp
	}{{ce.Onset, &cell.Onset}, {ce.Offset, &cell.Offset}} {
		if ts.text == "" {
			continue
		}
		parsed, err := ir.ParseTimeStamp(ts.text, tps)
		if err != nil {
			return err
		}
		*ts.dst = parsed
	}
	if ce.Comment != "" {
		cell.Comment = ce.Comment
	}
	if ce.Values == "" {
		return nil
	}
	mve, err := h.db.ColumnVocab(col.ID)
	if err != nil {
		return err
	}
	m, err := format.ParseMatrix(h.db, mve, ce.Values, tps)
	if err != nil {
		return err
	}
	cell.Value = m
	return nil
}

func (h *Harness) cellAt(ref CellRef) (*ir.Cell, error) {
	col, err := h.db.ColumnByName(ref.Column)
	if err != nil {
		return nil, err
	}
	return h.db.CellByOrd(col.ID, ref.Ord)
}

func bracketed(name string) string {
	if strings.HasPrefix(name, "<") {
		return name
	}
	return "<" + name + ">"
}

func (s Step) name() string {
	switch {
	case s.AddPredicate != nil:
		return "add_predicate"
	case s.AddColumn != nil:
		return "add_column"
	case s.EditVocab != nil:
		return "edit_vocab"
	case s.RemoveVocab != nil:
		return "remove_vocab"
	case s.RemoveColumn != nil:
		return "remove_column"
	case s.AppendCell != nil:
		return "append_cell"
	case s.InsertCell != nil:
		return "insert_cell"
	case s.ReplaceCell != nil:
		return "replace_cell"
	case s.RemoveCell != nil:
		return "remove_cell"
	case s.SetTemporalOrdering != nil:
		return "set_temporal_ordering"
	}
	return "empty"
}
