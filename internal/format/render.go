package format

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/vocab"
)

// Vocabulary resolves vocabulary elements by id.
type Vocabulary interface {
	VocabElement(id ir.ID) (*ir.VocabElement, error)
}

// Source is the read surface of a database image. *db.Database
// satisfies it.
type Source interface {
	Vocabulary
	Name() string
	VocabElements(kind ir.VocabKind, filter vocab.SystemFilter) ([]*ir.VocabElement, error)
	Columns(kind ir.ColumnKind) ([]*ir.Column, error)
	CellIDs(colID ir.ID) ([]ir.ID, error)
	Cell(id ir.ID) (*ir.Cell, error)
}

// Implicit argument names of a column predicate.
var implicitNames = [ir.ColPredicateImplicitArgs]string{"<ord>", "<onset>", "<offset>"}

// Database renders the whole image.
func Database(src Source) (string, error) {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(src.Name())

	elems, err := src.VocabElements(0, vocab.AnySystem)
	if err != nil {
		return "", err
	}
	b.WriteString(" (VocabList")
	for _, ve := range elems {
		b.WriteString(" ")
		b.WriteString(ve.Signature())
	}
	b.WriteString(")")

	cols, err := src.Columns(0)
	if err != nil {
		return "", err
	}
	b.WriteString(" (ColumnList")
	for _, col := range cols {
		s, err := Column(src, col)
		if err != nil {
			return "", err
		}
		b.WriteString(" ")
		b.WriteString(s)
	}
	b.WriteString("))")
	return b.String(), nil
}

// Column renders one column and its cells.
func Column(src Source, col *ir.Column) (string, error) {
	ids, err := src.CellIDs(col.ID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(col.Name)
	for _, id := range ids {
		cell, err := src.Cell(id)
		if err != nil {
			return "", err
		}
		s, err := Cell(src, cell)
		if err != nil {
			return "", err
		}
		b.WriteString(" ")
		b.WriteString(s)
	}
	b.WriteString(")")
	return b.String(), nil
}

// Cell renders (ord, onset, offset, (v1, v2)).
func Cell(src Source, cell *ir.Cell) (string, error) {
	ord := cell.Ord
	if cell.Kind == ir.CellReference {
		target, err := src.Cell(cell.TargetID)
		if err != nil {
			return "", errors.Wrapf(err, "reference cell %d", cell.ID)
		}
		cell = target
	}
	m, err := Matrix(src, cell.Value)
	if err != nil {
		return "", err
	}
	return "(" + strconv.Itoa(ord) + ", " + cell.Onset.String() + ", " + cell.Offset.String() + ", " + m + ")", nil
}

// Matrix renders a cell payload as (v1, v2).
func Matrix(v Vocabulary, m ir.Matrix) (string, error) {
	ve, err := v.VocabElement(m.VocabID)
	if err != nil {
		return "", err
	}
	args, err := argList(v, ve.Fargs, m.Args)
	if err != nil {
		return "", err
	}
	return "(" + args + ")", nil
}

// Value renders one value filling formal argument f.
func Value(v Vocabulary, f ir.FormalArg, val ir.Value) (string, error) {
	return value(v, f.Name, val)
}

func value(v Vocabulary, name string, val ir.Value) (string, error) {
	if ir.IsEmpty(val) {
		return name, nil
	}
	switch x := val.(type) {
	case ir.Integer:
		return strconv.FormatInt(int64(x), 10), nil
	case ir.Float:
		return ir.FormatFloat(float64(x)), nil
	case ir.Nominal:
		return string(x), nil
	case ir.Text:
		return string(x), nil
	case ir.QuoteString:
		return strconv.Quote(string(x)), nil
	case ir.TimeStamp:
		return x.String(), nil
	case ir.Predicate:
		ve, err := v.VocabElement(x.VocabID)
		if err != nil {
			return "", err
		}
		args, err := argList(v, ve.Fargs, x.Args)
		if err != nil {
			return "", err
		}
		return ve.Name + "(" + args + ")", nil
	case ir.ColPredicate:
		ve, err := v.VocabElement(x.VocabID)
		if err != nil {
			return "", err
		}
		if len(x.Args) < ir.ColPredicateImplicitArgs {
			return "", errors.Newf("column predicate over %q lacks its implicit arguments", ve.Name)
		}
		parts := make([]string, 0, len(x.Args))
		for i, dv := range x.Args[:ir.ColPredicateImplicitArgs] {
			s, err := value(v, implicitNames[i], dv.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		rest, err := argList(v, ve.Fargs, x.Args[ir.ColPredicateImplicitArgs:])
		if err != nil {
			return "", err
		}
		return ve.Name + "(" + strings.Join(parts, ", ") + ", " + rest + ")", nil
	}
	return "", errors.Newf("cannot render %T", val)
}

func argList(v Vocabulary, fargs []ir.FormalArg, args []ir.DataValue) (string, error) {
	if len(fargs) != len(args) {
		return "", errors.Newf("%d values for %d arguments", len(args), len(fargs))
	}
	parts := make([]string, len(args))
	for i, dv := range args {
		s, err := value(v, fargs[i].Name, dv.Value)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}
