package ir

import "gopkg.in/yaml.v3"

// VocabSpec is a declarative description of a database's vocabulary,
// produced by the compiler from CUE and consumed by the database and the
// scenario harness. Declaration order is preserved.
type VocabSpec struct {
	Database       string          `json:"database,omitempty" yaml:"database,omitempty"`
	TicksPerSecond int64           `json:"ticks_per_second,omitempty" yaml:"ticks_per_second,omitempty"`
	Predicates     []PredicateDecl `json:"predicates" yaml:"predicates"`
	Columns        []ColumnDecl    `json:"columns" yaml:"columns"`
}

// PredicateDecl declares a predicate vocabulary element.
type PredicateDecl struct {
	Name string    `json:"name" yaml:"name"`
	Args []ArgDecl `json:"args" yaml:"args"`
}

// ColumnDecl declares a data or reference column. Type is a MatrixType
// name or "reference". Args apply to matrix columns only.
type ColumnDecl struct {
	Name   string    `json:"name" yaml:"name"`
	Type   string    `json:"type" yaml:"type"`
	Args   []ArgDecl `json:"args,omitempty" yaml:"args,omitempty"`
	Hidden bool      `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// ColumnTypeReference is the ColumnDecl.Type of a reference column.
const ColumnTypeReference = "reference"

// ArgDecl declares one formal argument. Kind defaults to "untyped". Min
// and Max are decimal strings (ticks for time stamps) so that no
// precision is lost on the way through JSON.
//
// In YAML an argument is either a bare name or a mapping:
//
//	args: ["<who>", {name: level, kind: integer, min: 1, max: 5}]
type ArgDecl struct {
	Name       string   `json:"name" yaml:"name"`
	Kind       string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Min        string   `json:"min,omitempty" yaml:"min,omitempty"`
	Max        string   `json:"max,omitempty" yaml:"max,omitempty"`
	Values     []string `json:"values,omitempty" yaml:"values,omitempty"`
	Predicates []string `json:"predicates,omitempty" yaml:"predicates,omitempty"`
}

// UnmarshalYAML accepts a scalar name or a full mapping.
func (a *ArgDecl) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*a = ArgDecl{Name: value.Value}
		return nil
	}
	type plain ArgDecl
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*a = ArgDecl(p)
	return nil
}
