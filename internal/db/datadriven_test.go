package db_test

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/db"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/format"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/testutil"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/vocab"
)

// TestDataDriven runs the edit scripts under testdata. Each file starts
// from an empty database named "dd" at 1000 ticks per second.
func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		s := &script{}
		s.reset(t, false)
		datadriven.RunTest(t, path, func(t *testing.T, td *datadriven.TestData) string {
			return s.run(t, td)
		})
	})
}

type script struct {
	d      *db.Database
	events []cascade.EventKind
}

func (s *script) reset(t *testing.T, temporal bool) {
	d, err := db.New("dd",
		db.WithClock(testutil.NewDeterministicClock()),
		db.WithTokenGenerator(testutil.NewSequenceGenerator("")),
		db.WithTemporalOrdering(temporal))
	require.NoError(t, err)
	s.d, s.events = d, nil
	d.RegisterListener(cascade.HandlerFunc(func(ev cascade.Event) error {
		s.events = append(s.events, ev.Kind)
		return nil
	}))
}

func (s *script) run(t *testing.T, td *datadriven.TestData) string {
	out, err := s.dispatch(t, td)
	if err != nil {
		if code := ir.CodeOf(err); code != "" {
			return "error: " + string(code)
		}
		return "error: " + err.Error()
	}
	return out
}

func (s *script) dispatch(t *testing.T, td *datadriven.TestData) (string, error) {
	switch td.Cmd {
	case "reset":
		s.reset(t, td.HasArg("temporal"))
		return "ok", nil

	case "add-predicate":
		fargs, err := parseFargs(td.Input)
		if err != nil {
			return "", err
		}
		id, err := s.d.AddPredicate(arg(t, td, "name"), fargs...)
		if err != nil {
			return "", err
		}
		return s.signature(id)

	case "add-column":
		mtype, err := ir.ParseMatrixType(arg(t, td, "type"))
		if err != nil {
			return "", err
		}
		fargs, err := parseFargs(td.Input)
		if err != nil {
			return "", err
		}
		id, err := s.d.AddColumn(arg(t, td, "name"), mtype, fargs...)
		if err != nil {
			return "", err
		}
		ve, err := s.d.ColumnVocab(id)
		if err != nil {
			return "", err
		}
		return ve.Signature(), nil

	case "add-reference-column":
		_, err := s.d.AddReferenceColumn(arg(t, td, "name"))
		return "ok", err

	case "edit-vocab":
		ve, err := s.d.VocabElementByName(arg(t, td, "name"))
		if err != nil {
			return "", err
		}
		if err := editVocab(ve, td.Input); err != nil {
			return "", err
		}
		if err := s.d.ReplaceVocabElement(ve); err != nil {
			return "", err
		}
		return s.signature(ve.ID)

	case "remove-vocab":
		ve, err := s.d.VocabElementByName(arg(t, td, "name"))
		if err != nil {
			return "", err
		}
		return "ok", s.d.RemoveVocabElement(ve.ID)

	case "remove-column":
		col, err := s.d.ColumnByName(arg(t, td, "name"))
		if err != nil {
			return "", err
		}
		return "ok", s.d.RemoveColumn(col.ID)

	case "append-cell", "insert-cell":
		col, err := s.d.ColumnByName(arg(t, td, "col"))
		if err != nil {
			return "", err
		}
		var cell *ir.Cell
		if col.Kind == ir.ColumnReference {
			target, err := s.cellAt(t, td, "target-col", "target-ord")
			if err != nil {
				return "", err
			}
			if cell, err = s.d.NewReferenceCell(col.ID, target.ID); err != nil {
				return "", err
			}
		} else {
			if cell, err = s.d.NewCell(col.ID); err != nil {
				return "", err
			}
			if err := s.fill(t, td, col, cell); err != nil {
				return "", err
			}
		}
		ord := 0
		if td.Cmd == "insert-cell" {
			td.ScanArgs(t, "ord", &ord)
		} else if ord, err = s.d.NumCells(col.ID); err == nil {
			ord++
		}
		id, err := s.d.InsertCell(cell, ord)
		if err != nil {
			return "", err
		}
		return s.renderCell(id)

	case "replace-cell":
		cell, err := s.cellAt(t, td, "col", "ord")
		if err != nil {
			return "", err
		}
		col, err := s.d.Column(cell.ColumnID)
		if err != nil {
			return "", err
		}
		if err := s.fill(t, td, col, cell); err != nil {
			return "", err
		}
		if err := s.d.ReplaceCell(cell); err != nil {
			return "", err
		}
		return s.renderCell(cell.ID)

	case "remove-cell":
		cell, err := s.cellAt(t, td, "col", "ord")
		if err != nil {
			return "", err
		}
		return "ok", s.d.RemoveCell(cell.ID)

	case "temporal":
		var on bool
		td.ScanArgs(t, "on", &on)
		return "ok", s.d.SetTemporalOrdering(on)

	case "vocab":
		elems, err := s.d.VocabElements(0, vocab.AnySystem)
		if err != nil {
			return "", err
		}
		var lines []string
		for _, ve := range elems {
			lines = append(lines, ve.Signature())
		}
		return strings.Join(lines, "\n"), nil

	case "cells":
		cols, err := s.d.Columns(0)
		if err != nil {
			return "", err
		}
		var lines []string
		for _, col := range cols {
			if td.HasArg("col") && arg(t, td, "col") != col.Name {
				continue
			}
			line, err := format.Column(s.d, col)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n"), nil

	case "dump":
		return format.Database(s.d)

	case "check":
		if err := s.d.Check(); err != nil {
			return err.Error(), nil
		}
		return "ok", nil

	case "events":
		var lines []string
		for _, k := range s.events {
			lines = append(lines, k.String())
		}
		s.events = nil
		return strings.Join(lines, "\n"), nil
	}
	t.Fatalf("%s: unknown command %q", td.Pos, td.Cmd)
	return "", nil
}

func arg(t *testing.T, td *datadriven.TestData, key string) string {
	var v string
	td.ScanArgs(t, key, &v)
	return v
}

func (s *script) signature(id ir.ID) (string, error) {
	ve, err := s.d.VocabElement(id)
	if err != nil {
		return "", err
	}
	return ve.Signature(), nil
}

func (s *script) renderCell(id ir.ID) (string, error) {
	cell, err := s.d.Cell(id)
	if err != nil {
		return "", err
	}
	return format.Cell(s.d, cell)
}

func (s *script) cellAt(t *testing.T, td *datadriven.TestData, colKey, ordKey string) (*ir.Cell, error) {
	col, err := s.d.ColumnByName(arg(t, td, colKey))
	if err != nil {
		return nil, err
	}
	var ord int
	td.ScanArgs(t, ordKey, &ord)
	return s.d.CellByOrd(col.ID, ord)
}

// fill sets onset, offset and, when input is given, the matrix of a data
// cell.
func (s *script) fill(t *testing.T, td *datadriven.TestData, col *ir.Column, cell *ir.Cell) error {
	for key, dst := range map[string]*ir.TimeStamp{"onset": &cell.Onset, "offset": &cell.Offset} {
		if !td.HasArg(key) {
			continue
		}
		ts, err := ir.ParseTimeStamp(arg(t, td, key), s.d.TicksPerSecond())
		if err != nil {
			return err
		}
		*dst = ts
	}
	if strings.TrimSpace(td.Input) == "" {
		return nil
	}
	mve, err := s.d.VocabElement(col.VocabID)
	if err != nil {
		return err
	}
	m, err := format.ParseMatrix(s.d, mve, td.Input, s.d.TicksPerSecond())
	if err != nil {
		return err
	}
	cell.Value = m
	return nil
}

// parseFargs reads one formal argument per line: "<name> [kind]".
func parseFargs(input string) ([]ir.FormalArg, error) {
	var out []ir.FormalArg
	for _, line := range nonEmptyLines(input) {
		f, err := parseFarg(strings.Fields(line))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func parseFarg(fields []string) (ir.FormalArg, error) {
	kind := ir.FargUntyped
	if len(fields) > 1 {
		var err error
		if kind, err = ir.ParseFargKind(fields[1]); err != nil {
			return ir.FormalArg{}, err
		}
	}
	return ir.NewFormalArg(fields[0], kind), nil
}

// editVocab applies one working-copy edit per line:
//
//	name <new>
//	append <arg> [kind]
//	insert <pos> <arg> [kind]
//	delete <pos>
//	move <from> <to>
//	retype <pos> <kind>
//	rename <pos> <arg>
func editVocab(ve *ir.VocabElement, input string) error {
	for _, line := range nonEmptyLines(input) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("malformed edit %q", line)
		}
		pos := func(i int) int {
			n, _ := strconv.Atoi(fields[i])
			return n
		}
		var err error
		switch fields[0] {
		case "name":
			ve.Name = fields[1]
		case "append":
			var f ir.FormalArg
			if f, err = parseFarg(fields[1:]); err == nil {
				ve.AppendArg(f)
			}
		case "insert":
			var f ir.FormalArg
			if f, err = parseFarg(fields[2:]); err == nil {
				err = ve.InsertArg(f, pos(1))
			}
		case "delete":
			err = ve.DeleteArg(pos(1))
		case "move":
			err = ve.MoveArg(pos(1), pos(2))
		case "retype":
			var kind ir.FargKind
			if kind, err = ir.ParseFargKind(fields[2]); err == nil {
				ve.Fargs[pos(1)].Kind = kind
				ve.Fargs[pos(1)].Constraint = nil
			}
		case "rename":
			ve.Fargs[pos(1)].Name = fields[2]
		default:
			err = fmt.Errorf("unknown edit %q", fields[0])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
