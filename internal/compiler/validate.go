package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	ErrInvalidDatabaseName = "E101" // database name breaks the name grammar
	ErrTicksOutOfRange     = "E102" // ticks_per_second outside [MinTPS, MaxTPS]
	ErrInvalidPredicate    = "E103" // predicate name breaks the name grammar
	ErrInvalidColumnName   = "E104" // column name breaks the name grammar
	ErrDuplicateName       = "E105" // name already used by a predicate or column
	ErrArgumentCount       = "E106" // wrong number of arguments for the element
	ErrInvalidArgName      = "E107" // argument name bad or repeated
	ErrInvalidArgKind      = "E108" // unknown kind, or kind not allowed here
	ErrInvalidColumnType   = "E109" // unknown column type
	ErrInvalidRange        = "E110" // min/max unparseable, inverted or misplaced
	ErrInvalidValues       = "E111" // nominal values misplaced or malformed
	ErrUnknownPredicate    = "E112" // predicate subrange names an undeclared predicate
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Combine folds validation errors into a single error, nil when there are
// none.
func Combine(errs []ValidationError) error {
	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return err
}

// Validate checks a compiled vocabulary against the naming, shape and
// constraint rules a database enforces, so a bad declaration is reported
// before anything is built. Returns every error found.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.VocabSpec:
		return validateVocabSpec(spec)
	case ir.VocabSpec:
		return validateVocabSpec(&spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

type vocabValidator struct {
	errs       []ValidationError
	names      map[string]string
	predicates map[string]bool
}

func (vv *vocabValidator) add(code, field, format string, args ...any) {
	vv.errs = append(vv.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

// claim records a name in the shared predicate/column namespace.
func (vv *vocabValidator) claim(name, field string) {
	if prev, ok := vv.names[name]; ok {
		vv.add(ErrDuplicateName, field, "name %q is already used by %s", name, prev)
		return
	}
	vv.names[name] = field
}

func validateVocabSpec(spec *ir.VocabSpec) []ValidationError {
	vv := &vocabValidator{
		names:      map[string]string{},
		predicates: map[string]bool{},
	}

	if spec.Database != "" && !ir.IsValidSVarName(spec.Database) {
		vv.add(ErrInvalidDatabaseName, "database", "invalid database name %q", spec.Database)
	}
	if spec.TicksPerSecond != 0 && (spec.TicksPerSecond < ir.MinTPS || spec.TicksPerSecond > ir.MaxTPS) {
		vv.add(ErrTicksOutOfRange, "ticks_per_second",
			"ticks_per_second %d outside [%d, %d]", spec.TicksPerSecond, ir.MinTPS, ir.MaxTPS)
	}

	// Predicates may name each other in subranges regardless of order.
	for _, p := range spec.Predicates {
		vv.predicates[p.Name] = true
	}

	for i, p := range spec.Predicates {
		field := fmt.Sprintf("predicate[%d]", i)
		if !ir.IsValidPredName(p.Name) {
			vv.add(ErrInvalidPredicate, field+".name", "invalid predicate name %q", p.Name)
		}
		vv.claim(p.Name, field)
		if len(p.Args) == 0 {
			vv.add(ErrArgumentCount, field+".args", "predicate %q needs at least one argument", p.Name)
		}
		vv.args(p.Args, field)
	}

	for i, c := range spec.Columns {
		field := fmt.Sprintf("column[%d]", i)
		if !ir.IsValidSVarName(c.Name) {
			vv.add(ErrInvalidColumnName, field+".name", "invalid column name %q", c.Name)
		}
		vv.claim(c.Name, field)
		vv.column(c, field)
	}
	return vv.errs
}

func (vv *vocabValidator) column(c ir.ColumnDecl, field string) {
	if c.Type == ir.ColumnTypeReference {
		if len(c.Args) > 0 {
			vv.add(ErrArgumentCount, field+".args", "reference column %q takes no arguments", c.Name)
		}
		return
	}
	mtype, err := ir.ParseMatrixType(c.Type)
	if err != nil {
		vv.add(ErrInvalidColumnType, field+".type", "unknown column type %q", c.Type)
		return
	}
	if _, fixed := mtype.FixedKind(); fixed {
		if len(c.Args) > 0 {
			vv.add(ErrArgumentCount, field+".args", "%s column %q has a fixed argument and takes none", mtype, c.Name)
		}
		return
	}
	vv.args(c.Args, field)
}

func (vv *vocabValidator) args(args []ir.ArgDecl, field string) {
	seen := map[string]bool{}
	for j, a := range args {
		af := fmt.Sprintf("%s.args[%d]", field, j)

		name := a.Name
		if !strings.HasPrefix(name, "<") {
			name = "<" + name + ">"
		}
		if !ir.IsValidFargName(name) {
			vv.add(ErrInvalidArgName, af+".name", "invalid argument name %q", a.Name)
		} else if seen[name] {
			vv.add(ErrInvalidArgName, af+".name", "argument %s is declared twice", name)
		}
		seen[name] = true

		kind := ir.FargUntyped
		if a.Kind != "" {
			k, err := ir.ParseFargKind(a.Kind)
			if err != nil {
				vv.add(ErrInvalidArgKind, af+".kind", "unknown argument kind %q", a.Kind)
				continue
			}
			kind = k
		}
		if kind == ir.FargText {
			vv.add(ErrInvalidArgKind, af+".kind", "text arguments are only allowed in text columns")
		}
		vv.constraint(a, kind, af)
	}
}

func (vv *vocabValidator) constraint(a ir.ArgDecl, kind ir.FargKind, field string) {
	if a.Min != "" || a.Max != "" {
		vv.bounds(a, kind, field)
	}

	if len(a.Values) > 0 {
		if kind != ir.FargNominal {
			vv.add(ErrInvalidValues, field+".values", "values need a nominal argument, not %s", kind)
		}
		for _, val := range a.Values {
			if !ir.IsValidNominal(val) {
				vv.add(ErrInvalidValues, field+".values", "invalid nominal %q", val)
			}
		}
	}

	if len(a.Predicates) > 0 {
		if kind != ir.FargPredicate {
			vv.add(ErrUnknownPredicate, field+".predicates", "predicates need a predicate argument, not %s", kind)
		}
		for _, p := range a.Predicates {
			if !vv.predicates[p] {
				vv.add(ErrUnknownPredicate, field+".predicates", "unknown predicate %q", p)
			}
		}
	}
}

func (vv *vocabValidator) bounds(a ir.ArgDecl, kind ir.FargKind, field string) {
	switch kind {
	case ir.FargInteger, ir.FargTimeStamp:
		lo, hi := int64(math.MinInt64), int64(math.MaxInt64)
		if kind == ir.FargTimeStamp {
			lo, hi = ir.MinTicks, ir.MaxTicks
		}
		var ok bool
		if lo, ok = vv.intBound(a.Min, lo, field+".min"); !ok {
			return
		}
		if hi, ok = vv.intBound(a.Max, hi, field+".max"); !ok {
			return
		}
		if kind == ir.FargTimeStamp && (lo < ir.MinTicks || hi > ir.MaxTicks) {
			vv.add(ErrInvalidRange, field, "time range [%d, %d] outside [%d, %d]", lo, hi, ir.MinTicks, ir.MaxTicks)
			return
		}
		if lo > hi {
			vv.add(ErrInvalidRange, field, "min %d is greater than max %d", lo, hi)
		}
	case ir.FargFloat:
		lo, hi := math.Inf(-1), math.Inf(1)
		var ok bool
		if lo, ok = vv.floatBound(a.Min, lo, field+".min"); !ok {
			return
		}
		if hi, ok = vv.floatBound(a.Max, hi, field+".max"); !ok {
			return
		}
		if lo > hi {
			vv.add(ErrInvalidRange, field, "min %g is greater than max %g", lo, hi)
		}
	default:
		vv.add(ErrInvalidRange, field, "a range needs an integer, float or time_stamp argument, not %s", kind)
	}
}

func (vv *vocabValidator) intBound(s string, def int64, field string) (int64, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		vv.add(ErrInvalidRange, field, "bound %q is not an integer", s)
		return 0, false
	}
	return n, true
}

func (vv *vocabValidator) floatBound(s string, def float64, field string) (float64, bool) {
	if s == "" {
		return def, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		vv.add(ErrInvalidRange, field, "bound %q is not a number", s)
		return 0, false
	}
	return f, true
}
