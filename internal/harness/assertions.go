package harness

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/multierr"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cascade"
	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/format"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %d\n", ev.Seq, ev.Token, ev.Kind, ev.ElementID)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion. Failures are combined into
// one error, each prefixed with its assertion's index; split them with
// multierr.Errors.
func EvaluateAssertions(h *Harness, result *Result, assertions []Assertion) error {
	var err error
	for i, a := range assertions {
		if aerr := evaluate(h, result, a); aerr != nil {
			err = multierr.Append(err, errors.Wrapf(aerr, "assertions[%d]", i))
		}
	}
	return err
}

func evaluate(h *Harness, result *Result, a Assertion) error {
	switch a.Type {
	case AssertCell:
		return assertCell(h, a)
	case AssertVocab:
		return assertVocab(h, a)
	case AssertDump:
		return assertDump(result, a)
	case AssertConsistent:
		return assertConsistent(h)
	case AssertEventCount:
		return assertEventCount(result, a)
	}
	return errors.Newf("unknown assertion type: %s", a.Type)
}

func assertCell(h *Harness, a Assertion) error {
	cell, err := h.cellAt(CellRef{Column: a.Column, Ord: a.Ord})
	if err != nil {
		return &AssertionError{
			Type:     AssertCell,
			Expected: fmt.Sprintf("%s[%d] = %s", a.Column, a.Ord, a.Expect),
			Actual:   err.Error(),
		}
	}
	got, err := format.Cell(h.db, cell)
	if err != nil {
		return err
	}
	if got != a.Expect {
		return &AssertionError{
			Type:     AssertCell,
			Expected: fmt.Sprintf("%s[%d] = %s", a.Column, a.Ord, a.Expect),
			Actual:   fmt.Sprintf("%s[%d] = %s", a.Column, a.Ord, got),
		}
	}
	return nil
}

func assertVocab(h *Harness, a Assertion) error {
	ve, err := h.db.VocabElementByName(a.Name)
	if err != nil {
		return &AssertionError{Type: AssertVocab, Expected: a.Expect, Actual: err.Error()}
	}
	if got := ve.Signature(); got != a.Expect {
		return &AssertionError{Type: AssertVocab, Expected: a.Expect, Actual: got}
	}
	return nil
}

func assertDump(result *Result, a Assertion) error {
	if result.Dump != a.Expect {
		return &AssertionError{Type: AssertDump, Expected: a.Expect, Actual: result.Dump}
	}
	return nil
}

func assertConsistent(h *Harness) error {
	if err := h.db.Check(); err != nil {
		return &AssertionError{Type: AssertConsistent, Expected: "consistent database", Actual: err.Error()}
	}
	return nil
}

// assertEventCount counts change events in the trace. An empty kind
// counts every event.
func assertEventCount(result *Result, a Assertion) error {
	if a.Kind != "" {
		if _, ok := cascade.ParseEventKind(a.Kind); !ok {
			return errors.Newf("unknown event kind: %s", a.Kind)
		}
	}
	n := 0
	for _, ev := range result.Trace {
		if a.Kind == "" || ev.Kind == a.Kind {
			n++
		}
	}
	if n != *a.Count {
		what := "events"
		if a.Kind != "" {
			what = a.Kind + " events"
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d %s", n, what),
			Trace:    result.Trace,
		}
	}
	return nil
}
