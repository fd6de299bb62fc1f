// Package column is the column registry: the ordered column list and, per
// column, the ordered list of cell ids.
//
// Cells themselves live in the index; the registry owns only their order.
// A cell's ordinal is its 1-based position and is filled in on every read.
//
// In temporal-ordering mode each column also keeps a B-tree keyed by
// (onset, cell id). Inserts land at the position the tree dictates instead
// of the requested ordinal, and columns touched during a cascade are
// re-sorted when the cascade ends. Reference cells sort by the onset of the
// data cell they mirror.
package column
