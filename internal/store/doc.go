// Package store provides the optional call ledger for the gateway using SQLite.
//
// # Overview
//
// The ledger records every provider attempt made while answering a turn:
// which backend and model were considered, whether they answered, were
// absent, or were skipped for lack of a credential, and how long the call
// took. Conversation transcripts are never written here; they live only in
// memory.
//
// # Interfaces
//
//   - Ledger: save and query attempts
//
// SQLiteStore implements Ledger on modernc.org/sqlite (pure Go, no cgo).
// MockStore is an in-memory Ledger for tests.
//
// # Wiring
//
// Recorder adapts a Ledger to ideation.Observer so a client reports its
// attempts without knowing about storage. Write failures are logged and
// dropped; they never affect the reply.
//
// # Schema
//
//	provider_attempts(id, session_id, provider, model, outcome, duration_ms, created_at)
//
// Timestamps are stored as fixed-width nanosecond RFC3339 text in UTC.
package store
