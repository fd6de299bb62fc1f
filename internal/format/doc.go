// Package format renders a database image in its parenthesized debug form
// and parses values written in the same notation.
//
// A whole image renders as
//
//	(name (VocabList e1 e2 ...) (ColumnList (col cell cell ...) ...))
//
// where vocabulary elements render as their signature, name(<a>, <b>), and
// cells as (ord, onset, offset, (v1, v2)). An empty value renders as the
// name of the formal argument it fills. A reference cell renders with its
// own ordinal and its target's times and values.
//
// The form is for inspection, self-checks and test fixtures. It is not a
// persistence format.
package format
