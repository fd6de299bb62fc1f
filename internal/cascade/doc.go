// Package cascade implements change notification for a database image.
//
// A cascade is a re-entrant begin/end bracket around any operation that may
// touch more than one stored element. The dispatcher counts nesting: the
// begin event fires only on the 0->1 transition and the end event only on
// 1->0, so an observer sees one logical change however deeply the
// operations that produced it were nested.
//
// Per-element change events are delivered synchronously while the cascade
// is open, in this order:
//  1. element-scoped listeners of the changed element
//  2. element-scoped listeners of the element's column
//  3. internal listeners (in-process components maintaining derived state)
//  4. external listeners (observers)
//
// Within each set, delivery follows registration order. Every event is
// stamped with a logical sequence number from Clock and with the token of
// the outermost cascade. Wall-clock time is never used for ordering.
//
// Errors returned by internal listeners abort the operation and are
// internal-consistency failures. Errors returned by scoped or external
// listeners are logged and dropped: an observer can never break the image.
package cascade
