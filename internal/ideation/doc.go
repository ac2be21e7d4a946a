// Package ideation is the gateway client shared by the HTTP service and the
// interactive CLI.
//
// # Overview
//
// A Client owns one conversation transcript and one provider preference. Each
// Submit:
//
//  1. Appends the user message to the transcript (before any backend call)
//  2. Tries the hosted backend if it is preferred and has a credential
//  3. Falls back to the local backend
//  4. Appends the first reply as an assistant message and returns it
//
// If nothing answers, Submit returns FallbackReply and the transcript keeps
// the unanswered user turn.
//
// Fallback only runs one way. The local backend is tried after a hosted
// failure; the hosted backend is never tried after the local one.
//
// # Concurrency
//
// A Client is single-owner. The HTTP service keeps one Client per session in
// a session.Registry which serializes access to each.
//
// # Observers
//
// Every adapter considered during a turn is reported to the configured
// Observers as an Attempt (ok, absent, or skipped). Metrics and the SQLite
// call ledger are wired in this way.
package ideation
