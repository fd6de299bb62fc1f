package harness

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/ir"
)

// Scenario is one scripted editing session with its expected outcome.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Database names the database; "scenario" when empty.
	Database string `yaml:"database,omitempty"`

	// Specs lists CUE vocabulary files applied before the first step.
	// Relative paths resolve against the scenario file.
	Specs []string `yaml:"specs,omitempty"`

	TemporalOrdering bool  `yaml:"temporal_ordering,omitempty"`
	TicksPerSecond   int64 `yaml:"ticks_per_second,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one edit. Exactly one action field is set.
type Step struct {
	AddPredicate        *ir.PredicateDecl `yaml:"add_predicate,omitempty"`
	AddColumn           *ir.ColumnDecl    `yaml:"add_column,omitempty"`
	EditVocab           *EditVocab        `yaml:"edit_vocab,omitempty"`
	RemoveVocab         *NameRef          `yaml:"remove_vocab,omitempty"`
	RemoveColumn        *NameRef          `yaml:"remove_column,omitempty"`
	AppendCell          *CellEdit         `yaml:"append_cell,omitempty"`
	InsertCell          *CellEdit         `yaml:"insert_cell,omitempty"`
	ReplaceCell         *CellEdit         `yaml:"replace_cell,omitempty"`
	RemoveCell          *CellRef          `yaml:"remove_cell,omitempty"`
	SetTemporalOrdering *bool             `yaml:"set_temporal_ordering,omitempty"`

	// ExpectError is the caller error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// NameRef names a vocabulary element or column.
type NameRef struct {
	Name string `yaml:"name"`
}

// EditVocab edits a vocabulary element on a working copy and submits it
// as one replace.
type EditVocab struct {
	Name   string   `yaml:"name"`
	Rename string   `yaml:"rename,omitempty"`
	Ops    []EditOp `yaml:"ops,omitempty"`
}

// EditOp is one working-copy edit. Arguments are addressed by name.
type EditOp struct {
	Append    *ir.ArgDecl `yaml:"append,omitempty"`
	Insert    *InsertOp   `yaml:"insert,omitempty"`
	Delete    string      `yaml:"delete,omitempty"`
	Move      *MoveOp     `yaml:"move,omitempty"`
	Retype    *RetypeOp   `yaml:"retype,omitempty"`
	RenameArg *RenameOp   `yaml:"rename_arg,omitempty"`
}

// InsertOp inserts Arg before position At (0-based).
type InsertOp struct {
	At  int        `yaml:"at"`
	Arg ir.ArgDecl `yaml:"arg"`
}

// MoveOp moves the named argument to position To (0-based).
type MoveOp struct {
	Arg string `yaml:"arg"`
	To  int    `yaml:"to"`
}

// RetypeOp gives the named argument a new kind and constraint while
// keeping its identity.
type RetypeOp struct {
	Arg        string   `yaml:"arg"`
	Kind       string   `yaml:"kind"`
	Min        string   `yaml:"min,omitempty"`
	Max        string   `yaml:"max,omitempty"`
	Values     []string `yaml:"values,omitempty"`
	Predicates []string `yaml:"predicates,omitempty"`
}

// RenameOp renames an argument.
type RenameOp struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// CellRef addresses a cell by column name and 1-based ordinal.
type CellRef struct {
	Column string `yaml:"column"`
	Ord    int    `yaml:"ord"`
}

// CellEdit describes a cell to append, insert or replace. Values uses the
// textual matrix form, e.g. "(kid, looks(mom, toy))". Target is required
// for reference columns and ignored elsewhere.
type CellEdit struct {
	Column  string   `yaml:"column"`
	Ord     int      `yaml:"ord,omitempty"`
	Onset   string   `yaml:"onset,omitempty"`
	Offset  string   `yaml:"offset,omitempty"`
	Values  string   `yaml:"values,omitempty"`
	Comment string   `yaml:"comment,omitempty"`
	Target  *CellRef `yaml:"target,omitempty"`
}

// Assertion checks the database or journal after the last step.
type Assertion struct {
	Type   string `yaml:"type"`
	Column string `yaml:"column,omitempty"`
	Ord    int    `yaml:"ord,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	Count  *int   `yaml:"count,omitempty"`
	Expect string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCell       = "cell"
	AssertVocab      = "vocab"
	AssertDump       = "dump"
	AssertConsistent = "consistent"
	AssertEventCount = "event_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and spec paths resolve against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads a scenario, resolving relative spec
// paths against basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario file")
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, errors.Wrap(err, "invalid scenario")
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Steps) == 0 && len(s.Specs) == 0 {
		return errors.New("a scenario needs specs or steps")
	}
	if len(s.Assertions) == 0 {
		return errors.New("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return errors.Newf("spec file not found: %s", specPath)
		}
	}

	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return errors.Newf("steps[%d]: exactly one action is required, found %d", i, n)
		}
		if step.EditVocab != nil {
			for j, op := range step.EditVocab.Ops {
				if n := op.actions(); n != 1 {
					return errors.Newf("steps[%d].edit_vocab.ops[%d]: exactly one edit is required, found %d", i, j, n)
				}
			}
		}
		if c := step.cellEdit(); c != nil && c.Column == "" {
			return errors.Newf("steps[%d]: column is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return errors.Newf("assertions[%d]: type is required", index)
	case AssertCell:
		if a.Column == "" || a.Ord < 1 {
			return errors.Newf("assertions[%d]: column and ord are required for cell", index)
		}
	case AssertVocab:
		if a.Name == "" || a.Expect == "" {
			return errors.Newf("assertions[%d]: name and expect are required for vocab", index)
		}
	case AssertDump:
		if a.Expect == "" {
			return errors.Newf("assertions[%d]: expect is required for dump", index)
		}
	case AssertConsistent:
	case AssertEventCount:
		if a.Count == nil || *a.Count < 0 {
			return errors.Newf("assertions[%d]: a non-negative count is required for event_count", index)
		}
	default:
		return errors.Newf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.AddPredicate != nil, s.AddColumn != nil, s.EditVocab != nil,
		s.RemoveVocab != nil, s.RemoveColumn != nil, s.AppendCell != nil,
		s.InsertCell != nil, s.ReplaceCell != nil, s.RemoveCell != nil,
		s.SetTemporalOrdering != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (s Step) cellEdit() *CellEdit {
	switch {
	case s.AppendCell != nil:
		return s.AppendCell
	case s.InsertCell != nil:
		return s.InsertCell
	case s.ReplaceCell != nil:
		return s.ReplaceCell
	}
	return nil
}

func (op EditOp) actions() int {
	n := 0
	for _, set := range []bool{
		op.Append != nil, op.Insert != nil, op.Delete != "",
		op.Move != nil, op.Retype != nil, op.RenameArg != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
