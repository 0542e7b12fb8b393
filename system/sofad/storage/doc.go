// Package storage implements the in-memory document store.
//
// # State
//
// The whole store is one immutable State value: a persistent sorted map
// from database name to Database, each of which holds a persistent map of
// documents by id and an append-only change log keyed by sequence. Every
// mutation builds a new State sharing all untouched structure with the
// previous one, so a reader holding an old snapshot is never disturbed.
//
// # Mutation pipeline
//
// Store keeps the current State behind an atomic pointer. Apply reads the
// pointer, runs a pure Transition against that snapshot and publishes the
// result with compare-and-swap. If another writer got there first the
// transition is recomputed against the new snapshot, so revision checks
// always see the latest document. RetryPolicy bounds this loop; a call
// that loses too many races fails with ErrBusy and changes nothing.
//
// # Documents
//
// Each accepted write bumps the database sequence by one and records a
// ChangeInfo at that sequence. A write is accepted when its _rev matches
// the stored revision (creations need none); otherwise it fails with
// ErrConflict and consumes nothing. Deletes store a tombstone which
// remains readable by id.
//
// The store never logs.
package storage
