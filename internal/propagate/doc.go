// Package propagate rewrites value graphs after a vocabulary element's
// formal-argument list changes.
//
// Diff classifies the change by argument identity, never by position:
//
//   - Deletions: ids in the old list only
//   - Insertions: ids in the new list only
//   - Moves: surviving ids whose order relative to the other survivors
//     changed (positions shifted only by insertions or deletions are not
//     moves)
//   - Retypes: surviving ids whose kind or subrange constraint changed
//   - Renames: surviving ids whose name alone changed; no value is touched
//
// Script.Apply executes the classification against one argument sequence
// in four passes: drop deletions, place placeholders for insertions, place
// survivors in their new order, then re-check retyped slots and reset the
// ones whose value is no longer legal. RewriteMatrix and RewriteValue walk
// a value graph depth-first and apply the script to every predicate (and
// column predicate) shaped by the edited element, at any depth.
//
// The package is pure: it never touches a registry. The caller walks the
// stored cells and writes rewritten ones back.
package propagate
