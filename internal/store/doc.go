// Package store is the SQLite change journal of a database.
//
// A Recorder registered as an external cascade listener writes one row per
// cascade and one row per change event. The journal is append-only:
//
//   - cascades(token, database, begin_seq, end_seq)
//   - events(id, token, seq, kind, element_id, column_id, payload)
//
// Ordering uses the logical sequence number stamped by the cascade
// dispatcher, never wall time. Every query orders by seq then id, so two
// reads of the same journal return the same rows in the same order.
//
// Payloads are canonical JSON (sorted keys, NFC strings, no floats) of the
// old and new element images. Event ids hash the token, seq, kind and
// element id with SHA-256 under a domain prefix, which makes writes
// idempotent.
//
// # Database configuration
//
//   - WAL mode
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single pooled connection, so ":memory:" journals work
package store
