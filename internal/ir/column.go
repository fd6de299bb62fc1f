package ir

import "fmt"

// ColumnKind distinguishes data columns from reference columns.
type ColumnKind uint8

const (
	ColumnData ColumnKind = iota + 1
	ColumnReference
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnData:
		return "data"
	case ColumnReference:
		return "reference"
	}
	return fmt.Sprintf("column_kind(%d)", uint8(k))
}

// Column is a named sequence of cells. A data column is backed by exactly
// one matrix vocabulary element, VocabID. Reference columns have none.
type Column struct {
	ID         ID         `json:"id"`
	Name       string     `json:"name"`
	Kind       ColumnKind `json:"kind"`
	VocabID    ID         `json:"vocab_id,omitempty"`
	MatrixType MatrixType `json:"matrix_type,omitempty"`
	Hidden     bool       `json:"hidden,omitempty"`
}

func (c *Column) ElementID() ID         { return c.ID }
func (c *Column) SetElementID(id ID)    { c.ID = id }
func (c *Column) CloneElement() Element { return c.Clone() }
func (*Column) element()                {}

// Clone returns a copy.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Matrix is a cell's payload: one data value per formal argument of the
// governing matrix vocabulary element, positionally aligned.
type Matrix struct {
	VocabID ID          `json:"vocab_id"`
	Args    []DataValue `json:"args"`
}

// Clone returns a deep copy.
func (m Matrix) Clone() Matrix {
	return Matrix{VocabID: m.VocabID, Args: CloneArgs(m.Args)}
}

// CellKind distinguishes data cells from reference cells.
type CellKind uint8

const (
	CellData CellKind = iota + 1
	CellReference
)

func (k CellKind) String() string {
	switch k {
	case CellData:
		return "data"
	case CellReference:
		return "reference"
	}
	return fmt.Sprintf("cell_kind(%d)", uint8(k))
}

// Cell is one observation. Ord is 1-based and derived from the cell's
// position; it is filled in on every read and ignored on write.
//
// Data cells carry Onset, Offset and Value. Reference cells carry only
// TargetID, the data cell they mirror.
type Cell struct {
	ID       ID        `json:"id"`
	ColumnID ID        `json:"column_id"`
	Kind     CellKind  `json:"kind"`
	Ord      int       `json:"ord"`
	Onset    TimeStamp `json:"onset"`
	Offset   TimeStamp `json:"offset"`
	Comment  string    `json:"comment,omitempty"`
	Value    Matrix    `json:"value"`
	TargetID ID        `json:"target_id,omitempty"`
}

func (c *Cell) ElementID() ID         { return c.ID }
func (c *Cell) SetElementID(id ID)    { c.ID = id }
func (c *Cell) CloneElement() Element { return c.Clone() }
func (*Cell) element()                {}

// Clone returns a deep copy.
func (c *Cell) Clone() *Cell {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Value = c.Value.Clone()
	return &cp
}
