package ir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FargKind is the kind of a formal argument.
type FargKind uint8

const (
	FargUntyped FargKind = iota + 1
	FargInteger
	FargFloat
	FargNominal
	FargPredicate
	FargColPredicate
	FargQuoteString
	FargTimeStamp
	FargText
)

var fargKindNames = map[FargKind]string{
	FargUntyped:      "untyped",
	FargInteger:      "integer",
	FargFloat:        "float",
	FargNominal:      "nominal",
	FargPredicate:    "predicate",
	FargColPredicate: "col_predicate",
	FargQuoteString:  "quote_string",
	FargTimeStamp:    "time_stamp",
	FargText:         "text",
}

func (k FargKind) String() string {
	if s, ok := fargKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("farg_kind(%d)", uint8(k))
}

// Valid reports whether k is one of the nine kinds.
func (k FargKind) Valid() bool {
	_, ok := fargKindNames[k]
	return ok
}

// ParseFargKind maps a snake_case kind name to its FargKind.
func ParseFargKind(s string) (FargKind, error) {
	for k, name := range fargKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, Errorf(CodeInvalidArgument, "farg", "unknown formal argument kind %q", s)
}

// FormalArg is one named, typed parameter slot of a vocabulary element.
// Name includes the angle brackets, e.g. "<arg0>".
type FormalArg struct {
	ID         ID         `json:"id"`
	VocabID    ID         `json:"vocab_id"`
	Name       string     `json:"name"`
	Kind       FargKind   `json:"kind"`
	Constraint Constraint `json:"-"`
}

// NewFormalArg returns an unregistered formal argument.
func NewFormalArg(name string, kind FargKind) FormalArg {
	return FormalArg{Name: name, Kind: kind}
}

func (f *FormalArg) ElementID() ID         { return f.ID }
func (f *FormalArg) SetElementID(id ID)    { f.ID = id }
func (f *FormalArg) CloneElement() Element { c := f.Clone(); return &c }
func (*FormalArg) element()                {}

// Clone returns a deep copy.
func (f FormalArg) Clone() FormalArg {
	if f.Constraint != nil {
		f.Constraint = f.Constraint.cloneConstraint()
	}
	return f
}

// SameShape reports whether two formal arguments agree on kind and
// constraint. Names are irrelevant to value legality.
func (f FormalArg) SameShape(o FormalArg) bool {
	return f.Kind == o.Kind && ConstraintEqual(f.Constraint, o.Constraint)
}

func (f FormalArg) String() string {
	if f.Constraint == nil {
		return f.Name
	}
	return fmt.Sprintf("%s:%s%s", f.Name, f.Kind, f.Constraint)
}

// Constraint is a sealed interface over the subrange constraints a formal
// argument may carry. Each constraint type fits exactly one FargKind.
type Constraint interface {
	// Fits reports whether the constraint may be attached to kind k.
	Fits(k FargKind) bool
	String() string
	cloneConstraint() Constraint
}

// IntRange bounds an integer argument, inclusive.
type IntRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

func (IntRange) Fits(k FargKind) bool          { return k == FargInteger }
func (r IntRange) String() string              { return fmt.Sprintf("[%d..%d]", r.Min, r.Max) }
func (r IntRange) cloneConstraint() Constraint { return r }

// Contains reports whether n lies inside the range.
func (r IntRange) Contains(n int64) bool { return n >= r.Min && n <= r.Max }

// FloatRange bounds a float argument, inclusive.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (FloatRange) Fits(k FargKind) bool { return k == FargFloat }
func (r FloatRange) String() string {
	return "[" + FormatFloat(r.Min) + ".." + FormatFloat(r.Max) + "]"
}
func (r FloatRange) cloneConstraint() Constraint { return r }

// Contains reports whether x lies inside the range.
func (r FloatRange) Contains(x float64) bool { return x >= r.Min && x <= r.Max }

// TimeRange bounds a time-stamp argument, inclusive.
type TimeRange struct {
	Min TimeStamp `json:"min"`
	Max TimeStamp `json:"max"`
}

func (TimeRange) Fits(k FargKind) bool          { return k == FargTimeStamp }
func (r TimeRange) String() string              { return fmt.Sprintf("[%s..%s]", r.Min, r.Max) }
func (r TimeRange) cloneConstraint() Constraint { return r }

// Contains reports whether ts lies inside the range.
func (r TimeRange) Contains(ts TimeStamp) bool {
	return ts.Compare(r.Min) >= 0 && ts.Compare(r.Max) <= 0
}

// NominalSet restricts a nominal argument to the listed names.
type NominalSet []string

func (NominalSet) Fits(k FargKind) bool          { return k == FargNominal }
func (s NominalSet) String() string              { return "{" + strings.Join(s, ", ") + "}" }
func (s NominalSet) cloneConstraint() Constraint { return slices.Clone(s) }

// Contains reports whether name is in the set.
func (s NominalSet) Contains(name string) bool { return slices.Contains(s, name) }

// PredicateSet restricts a predicate argument to the listed predicate
// vocabulary elements.
type PredicateSet []ID

func (PredicateSet) Fits(k FargKind) bool { return k == FargPredicate }
func (s PredicateSet) String() string {
	ids := make([]string, len(s))
	for i, id := range s {
		ids[i] = strconv.FormatInt(int64(id), 10)
	}
	return "{" + strings.Join(ids, ", ") + "}"
}
func (s PredicateSet) cloneConstraint() Constraint { return slices.Clone(s) }

// Contains reports whether id is in the set.
func (s PredicateSet) Contains(id ID) bool { return slices.Contains(s, id) }

// ConstraintEqual compares two constraints, treating nil as "unconstrained".
func ConstraintEqual(a, b Constraint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case IntRange:
		y, ok := b.(IntRange)
		return ok && x == y
	case FloatRange:
		y, ok := b.(FloatRange)
		return ok && x == y
	case TimeRange:
		y, ok := b.(TimeRange)
		return ok && x.Min.Compare(y.Min) == 0 && x.Max.Compare(y.Max) == 0
	case NominalSet:
		y, ok := b.(NominalSet)
		return ok && slices.Equal(x, y)
	case PredicateSet:
		y, ok := b.(PredicateSet)
		return ok && slices.Equal(x, y)
	}
	return false
}
