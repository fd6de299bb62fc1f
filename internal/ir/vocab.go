package ir

import (
	"fmt"
	"slices"
	"strings"
)

// VocabKind distinguishes matrix vocabulary elements (backing a column)
// from free-standing predicate vocabulary elements.
type VocabKind uint8

const (
	VocabMatrix VocabKind = iota + 1
	VocabPredicate
)

func (k VocabKind) String() string {
	switch k {
	case VocabMatrix:
		return "matrix"
	case VocabPredicate:
		return "predicate"
	}
	return fmt.Sprintf("vocab_kind(%d)", uint8(k))
}

// MatrixType constrains the shape a matrix vocabulary element may take.
// Every type but MatrixMatrix is fixed-shape: one argument of the
// matching kind, owned by the system.
type MatrixType uint8

const (
	MatrixInteger MatrixType = iota + 1
	MatrixFloat
	MatrixNominal
	MatrixText
	MatrixPredicate
	MatrixMatrix
)

var matrixTypeNames = map[MatrixType]string{
	MatrixInteger:   "integer",
	MatrixFloat:     "float",
	MatrixNominal:   "nominal",
	MatrixText:      "text",
	MatrixPredicate: "predicate",
	MatrixMatrix:    "matrix",
}

func (t MatrixType) String() string {
	if s, ok := matrixTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("matrix_type(%d)", uint8(t))
}

// ParseMatrixType maps a type name to its MatrixType.
func ParseMatrixType(s string) (MatrixType, error) {
	for t, name := range matrixTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, Errorf(CodeInvalidArgument, "column", "unknown column type %q", s)
}

// FixedKind returns the single argument kind of a fixed-shape type.
// ok is false for MatrixMatrix.
func (t MatrixType) FixedKind() (kind FargKind, ok bool) {
	switch t {
	case MatrixInteger:
		return FargInteger, true
	case MatrixFloat:
		return FargFloat, true
	case MatrixNominal:
		return FargNominal, true
	case MatrixText:
		return FargText, true
	case MatrixPredicate:
		return FargPredicate, true
	case MatrixMatrix:
		return 0, false
	}
	return 0, false
}

// FixedArgName is the argument name used by fixed-shape matrix elements.
const FixedArgName = "<val>"

// VocabElement is a named schema object owning an ordered formal-argument
// list. Matrix elements also record their column and matrix type.
type VocabElement struct {
	ID         ID          `json:"id"`
	Name       string      `json:"name"`
	Kind       VocabKind   `json:"kind"`
	System     bool        `json:"system"`
	Fargs      []FormalArg `json:"fargs"`
	ColumnID   ID          `json:"column_id,omitempty"`
	MatrixType MatrixType  `json:"matrix_type,omitempty"`
}

// NewPredicateElement returns an unregistered predicate vocabulary element.
func NewPredicateElement(name string, fargs ...FormalArg) *VocabElement {
	return &VocabElement{Name: name, Kind: VocabPredicate, Fargs: fargs}
}

func (v *VocabElement) ElementID() ID         { return v.ID }
func (v *VocabElement) SetElementID(id ID)    { v.ID = id }
func (v *VocabElement) CloneElement() Element { return v.Clone() }
func (*VocabElement) element()                {}

// Clone returns a deep copy of the element and its argument list.
func (v *VocabElement) Clone() *VocabElement {
	if v == nil {
		return nil
	}
	c := *v
	c.Fargs = make([]FormalArg, len(v.Fargs))
	for i, f := range v.Fargs {
		c.Fargs[i] = f.Clone()
	}
	return &c
}

// ArgIndex returns the position of the formal argument with the given id,
// or -1.
func (v *VocabElement) ArgIndex(id ID) int {
	return slices.IndexFunc(v.Fargs, func(f FormalArg) bool { return f.ID == id })
}

// ArgByName returns the position of the named formal argument, or -1.
func (v *VocabElement) ArgByName(name string) int {
	return slices.IndexFunc(v.Fargs, func(f FormalArg) bool { return f.Name == name })
}

// AppendArg adds f at the end of a working copy.
func (v *VocabElement) AppendArg(f FormalArg) {
	v.Fargs = append(v.Fargs, f)
}

// InsertArg adds f before position pos of a working copy.
func (v *VocabElement) InsertArg(f FormalArg, pos int) error {
	if pos < 0 || pos > len(v.Fargs) {
		return Errorf(CodeOutOfRange, "vocab.insert_arg", "position %d out of range [0,%d]", pos, len(v.Fargs))
	}
	v.Fargs = slices.Insert(v.Fargs, pos, f)
	return nil
}

// DeleteArg removes the argument at pos from a working copy.
func (v *VocabElement) DeleteArg(pos int) error {
	if pos < 0 || pos >= len(v.Fargs) {
		return Errorf(CodeOutOfRange, "vocab.delete_arg", "position %d out of range [0,%d)", pos, len(v.Fargs))
	}
	v.Fargs = slices.Delete(v.Fargs, pos, pos+1)
	return nil
}

// MoveArg relocates the argument at from to position to, keeping its
// identity.
func (v *VocabElement) MoveArg(from, to int) error {
	n := len(v.Fargs)
	if from < 0 || from >= n || to < 0 || to >= n {
		return Errorf(CodeOutOfRange, "vocab.move_arg", "move %d->%d out of range [0,%d)", from, to, n)
	}
	f := v.Fargs[from]
	v.Fargs = slices.Delete(v.Fargs, from, from+1)
	v.Fargs = slices.Insert(v.Fargs, to, f)
	return nil
}

// ReplaceArg substitutes the argument at pos. The replacement inherits the
// identity of the argument it replaces, so a retype or rename is seen as
// the same parameter.
func (v *VocabElement) ReplaceArg(f FormalArg, pos int) error {
	if pos < 0 || pos >= len(v.Fargs) {
		return Errorf(CodeOutOfRange, "vocab.replace_arg", "position %d out of range [0,%d)", pos, len(v.Fargs))
	}
	f.ID = v.Fargs[pos].ID
	f.VocabID = v.Fargs[pos].VocabID
	v.Fargs[pos] = f
	return nil
}

// Signature renders name(<a>, <b>) as used in vocabulary listings.
func (v *VocabElement) Signature() string {
	names := make([]string, len(v.Fargs))
	for i, f := range v.Fargs {
		names[i] = f.Name
	}
	return v.Name + "(" + strings.Join(names, ", ") + ")"
}
