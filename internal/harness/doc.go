// Package harness runs scripted editing scenarios against a database.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: retype_argument
//	description: "Retyping an argument resets values that no longer fit"
//	specs:
//	  - vocab.cue
//	temporal_ordering: false
//	ticks_per_second: 1000
//	steps:
//	  - add_column: {name: trial, type: matrix, args: ["<subject>", "<score>"]}
//	  - append_cell: {column: trial, onset: "00:00:01:000", offset: "00:00:02:000", values: "(kid, 3)"}
//	  - edit_vocab:
//	      name: trial
//	      ops:
//	        - retype: {arg: "<score>", kind: nominal}
//	  - remove_column: {name: trial}
//	    expect_error: NOT_EMPTY
//	assertions:
//	  - type: cell
//	    column: trial
//	    ord: 1
//	    expect: "(1, 00:00:01:000, 00:00:02:000, (kid, <score>))"
//	  - type: consistent
//
// Every step may carry expect_error, the caller error code the step must
// fail with. A step that fails any other way fails the scenario.
//
// # Assertion Types
//
//   - cell: renders one cell and compares it to expect
//   - vocab: compares a vocabulary element's signature to expect
//   - dump: compares the full database rendering to expect
//   - consistent: runs the database self-check
//   - event_count: counts journaled change events, optionally of one kind
//
// # Deterministic Execution
//
// Each scenario runs against a fresh database whose cascades are journaled
// into an in-memory store. Sequence numbers come from a resettable logical
// clock and cascade tokens from a counter, so the event trace, and with it
// the golden snapshot, is byte-identical across runs.
package harness
