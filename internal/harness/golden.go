package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as the text stored in golden files: the
// scenario name, pass state, final dump and one line per journaled event.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "pass: %t\n", result.Pass)
	fmt.Fprintf(&b, "dump: %s\n", result.Dump)
	b.WriteString("trace:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "  %d %s %s %d\n", ev.Seq, ev.Token, ev.Kind, ev.ElementID)
	}
	if len(result.Errors) > 0 {
		b.WriteString("errors:\n")
		for _, msg := range result.Errors {
			fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(msg, "\n", "\n  "))
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
	return nil
}
