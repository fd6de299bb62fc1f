// Package vocab is the vocabulary registry: the shared-name-space collection
// of matrix and predicate vocabulary elements.
//
// Every add, replace and remove runs inside a cascade. Replace diffs the
// stored argument list against the submitted one and hands the resulting
// script to the registry's Dependents (the database) before committing the
// new stored copy, so that no value is ever left shaped by an argument list
// the registry no longer holds. A name change and an argument-list change
// submitted together are processed as two edits, rename first.
//
// Caller errors are detected before anything is mutated.
package vocab
