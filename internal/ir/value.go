package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind is the kind of a data value.
type ValueKind uint8

const (
	ValueUndefined ValueKind = iota + 1
	ValueInteger
	ValueFloat
	ValueNominal
	ValueText
	ValueQuoteString
	ValueTimeStamp
	ValuePredicate
	ValueColPredicate
)

var valueKindNames = map[ValueKind]string{
	ValueUndefined:    "undefined",
	ValueInteger:      "integer",
	ValueFloat:        "float",
	ValueNominal:      "nominal",
	ValueText:         "text",
	ValueQuoteString:  "quote_string",
	ValueTimeStamp:    "time_stamp",
	ValuePredicate:    "predicate",
	ValueColPredicate: "col_predicate",
}

func (k ValueKind) String() string {
	if s, ok := valueKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("value_kind(%d)", uint8(k))
}

// Value is a sealed interface over the nine data-value variants.
// Only Undefined, Integer, Float, Nominal, Text, QuoteString, TimeStamp,
// Predicate and ColPredicate implement it.
type Value interface {
	Kind() ValueKind
	// CloneValue returns a deep copy. Scalars return themselves.
	CloneValue() Value
	dataValue()
}

// Undefined is the unbound placeholder held by untyped arguments.
type Undefined struct{}

// Integer is a 64-bit integer value.
type Integer int64

// Float is a 64-bit floating point value.
type Float float64

// Nominal is a bare name value. The empty nominal is the empty value.
type Nominal string

// Text is a free-text value, only legal in text columns.
type Text string

// QuoteString is a double-quoted string value.
type QuoteString string

// Predicate references a predicate vocabulary element and holds one data
// value per formal argument of that element. VocabID == InvalidID is the
// empty predicate.
type Predicate struct {
	VocabID ID          `json:"vocab_id"`
	Args    []DataValue `json:"args"`
}

// ColPredicate references the matrix vocabulary element of a column. Its
// argument list is the three implicit arguments <ord>, <onset> and
// <offset> followed by one value per matrix argument.
type ColPredicate struct {
	VocabID ID          `json:"vocab_id"`
	Args    []DataValue `json:"args"`
}

// ColPredicateImplicitArgs is the number of leading implicit arguments of a
// column predicate.
const ColPredicateImplicitArgs = 3

func (Undefined) Kind() ValueKind    { return ValueUndefined }
func (Integer) Kind() ValueKind      { return ValueInteger }
func (Float) Kind() ValueKind        { return ValueFloat }
func (Nominal) Kind() ValueKind      { return ValueNominal }
func (Text) Kind() ValueKind         { return ValueText }
func (QuoteString) Kind() ValueKind  { return ValueQuoteString }
func (TimeStamp) Kind() ValueKind    { return ValueTimeStamp }
func (Predicate) Kind() ValueKind    { return ValuePredicate }
func (ColPredicate) Kind() ValueKind { return ValueColPredicate }

func (v Undefined) CloneValue() Value   { return v }
func (v Integer) CloneValue() Value     { return v }
func (v Float) CloneValue() Value       { return v }
func (v Nominal) CloneValue() Value     { return v }
func (v Text) CloneValue() Value        { return v }
func (v QuoteString) CloneValue() Value { return v }
func (v TimeStamp) CloneValue() Value   { return v }
func (v Predicate) CloneValue() Value {
	return Predicate{VocabID: v.VocabID, Args: CloneArgs(v.Args)}
}
func (v ColPredicate) CloneValue() Value {
	return ColPredicate{VocabID: v.VocabID, Args: CloneArgs(v.Args)}
}

func (Undefined) dataValue()    {}
func (Integer) dataValue()      {}
func (Float) dataValue()        {}
func (Nominal) dataValue()      {}
func (Text) dataValue()         {}
func (QuoteString) dataValue()  {}
func (TimeStamp) dataValue()    {}
func (Predicate) dataValue()    {}
func (ColPredicate) dataValue() {}

// DataValue fills one formal-argument slot. FargID and FargKind record the
// formal argument the value currently satisfies.
type DataValue struct {
	FargID   ID       `json:"farg_id"`
	FargKind FargKind `json:"farg_kind"`
	Value    Value    `json:"-"`
}

// Bind returns a data value for farg holding v.
func Bind(f FormalArg, v Value) DataValue {
	return DataValue{FargID: f.ID, FargKind: f.Kind, Value: v}
}

// Clone returns a deep copy.
func (d DataValue) Clone() DataValue {
	if d.Value != nil {
		d.Value = d.Value.CloneValue()
	}
	return d
}

// CloneArgs deep-copies an argument list, preserving nil.
func CloneArgs(args []DataValue) []DataValue {
	if args == nil {
		return nil
	}
	out := make([]DataValue, len(args))
	for i, a := range args {
		out[i] = a.Clone()
	}
	return out
}

// IsEmpty reports whether v is the empty value of its kind: undefined, an
// empty string, or a predicate that references nothing.
func IsEmpty(v Value) bool {
	switch x := v.(type) {
	case nil, Undefined:
		return true
	case Nominal:
		return x == ""
	case Text:
		return x == ""
	case Predicate:
		return !x.VocabID.Valid()
	case ColPredicate:
		return !x.VocabID.Valid()
	case Integer, Float, QuoteString, TimeStamp:
		return false
	}
	return false
}

// DefaultValue returns the value a freshly inserted or reset slot holds:
// undefined for untyped arguments, otherwise the zero of the kind clamped
// into the argument's subrange.
func DefaultValue(f FormalArg, tps int64) Value {
	switch f.Kind {
	case FargInteger:
		if r, ok := f.Constraint.(IntRange); ok {
			return Integer(clamp(0, r.Min, r.Max))
		}
		return Integer(0)
	case FargFloat:
		if r, ok := f.Constraint.(FloatRange); ok {
			return Float(clamp(0, r.Min, r.Max))
		}
		return Float(0)
	case FargTimeStamp:
		ts := TimeStamp{Ticks: 0, TPS: tps}
		if r, ok := f.Constraint.(TimeRange); ok && ts.Compare(r.Min) < 0 {
			return r.Min
		}
		return ts
	case FargNominal:
		return Nominal("")
	case FargText:
		return Text("")
	case FargQuoteString:
		return QuoteString("")
	case FargPredicate:
		return Predicate{}
	case FargColPredicate:
		return ColPredicate{}
	case FargUntyped:
		return Undefined{}
	}
	return Undefined{}
}

func clamp[T int64 | float64](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// Legal reports whether v may fill a slot of formal argument f. Untyped
// arguments accept every non-empty value except text, plus Undefined.
// Typed arguments accept only their own kind and, when constrained, only
// values inside the constraint. Empty values of the right kind are always
// legal.
func Legal(f FormalArg, v Value) bool {
	switch f.Kind {
	case FargUntyped:
		switch x := v.(type) {
		case Undefined:
			return true
		case Text:
			return false
		case Nominal, Predicate, ColPredicate:
			return !IsEmpty(x)
		case Integer, Float, QuoteString, TimeStamp:
			return true
		}
		return false
	case FargInteger:
		n, ok := v.(Integer)
		if !ok {
			return false
		}
		if r, ok := f.Constraint.(IntRange); ok {
			return r.Contains(int64(n))
		}
		return true
	case FargFloat:
		x, ok := v.(Float)
		if !ok {
			return false
		}
		if r, ok := f.Constraint.(FloatRange); ok {
			return r.Contains(float64(x))
		}
		return true
	case FargNominal:
		n, ok := v.(Nominal)
		if !ok {
			return false
		}
		if s, ok := f.Constraint.(NominalSet); ok && n != "" {
			return s.Contains(string(n))
		}
		return true
	case FargPredicate:
		p, ok := v.(Predicate)
		if !ok {
			return false
		}
		if s, ok := f.Constraint.(PredicateSet); ok && p.VocabID.Valid() {
			return s.Contains(p.VocabID)
		}
		return true
	case FargColPredicate:
		_, ok := v.(ColPredicate)
		return ok
	case FargQuoteString:
		_, ok := v.(QuoteString)
		return ok
	case FargTimeStamp:
		ts, ok := v.(TimeStamp)
		if !ok {
			return false
		}
		if r, ok := f.Constraint.(TimeRange); ok {
			return r.Contains(ts)
		}
		return true
	case FargText:
		_, ok := v.(Text)
		return ok
	}
	return false
}

// CheckScalar validates the content of a non-predicate value against the
// string grammars and the time stamp limits. Predicates are checked
// structurally by the database, which can resolve their vocabulary.
func CheckScalar(v Value) error {
	const op = "value.check"
	switch x := v.(type) {
	case Nominal:
		if x != "" && !IsValidNominal(string(x)) {
			return Errorf(CodeInvalidName, op, "invalid nominal %q", string(x))
		}
	case Text:
		if !IsValidTextString(string(x)) {
			return Errorf(CodeInvalidArgument, op, "invalid text string")
		}
	case QuoteString:
		if !IsValidQuoteString(string(x)) {
			return Errorf(CodeInvalidArgument, op, "invalid quote string %q", string(x))
		}
	case TimeStamp:
		if !x.InRange() {
			return Errorf(CodeOutOfRange, op, "time stamp %d at %d tps out of range", x.Ticks, x.TPS)
		}
	case Undefined, Integer, Float, Predicate, ColPredicate:
	case nil:
		return Errorf(CodeInvalidArgument, op, "missing value")
	}
	return nil
}

// FormatFloat renders a float so that it always reads back as a float.
func FormatFloat(x float64) string {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
