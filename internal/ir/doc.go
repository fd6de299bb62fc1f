// Package ir provides the data model shared by every other package: stored
// element types, formal arguments, data values, time stamps, the name
// grammars and the two error tiers.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Every stored element is addressed by an ID; cross-package references
//     are IDs, never pointers
//   - Kind dispatch is over closed sets (sealed interfaces, enums) and every
//     switch handles every kind
//   - Clone methods return deep copies; nothing returned to a caller aliases
//     registry storage
//   - All JSON tags use snake_case
package ir
