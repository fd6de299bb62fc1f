// Package index is the identity registry of a database image.
//
// The index is the only place identifiers are minted and the single owner
// of the mapping id -> element. It stores deep copies: callers keep their
// own working copies and must Replace to publish a change. Resolving an id
// the index does not know is an internal-consistency failure, never a
// caller error.
package index
