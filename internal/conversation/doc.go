// Package conversation holds the role-tagged transcript of a single chat.
//
// # Overview
//
// A Transcript is an ordered list of Messages. Order is significant: it is
// the context sent to a backend on every turn. Messages are values and are
// never modified once appended.
//
// The system message is not part of a Transcript. It is synthesized from
// the system-prompt resource for each backend call and placed in front of
// the stored messages.
//
// # Lifecycle
//
//   - Created empty by the owning client
//   - One user Message appended per turn, before the backend call
//   - One assistant Message appended per answered turn
//   - Cleared wholesale by Reset
//
// # Ownership
//
// A Transcript has exactly one owner and no internal locking. Messages()
// returns a copy so callers can hold the snapshot without racing the owner.
package conversation
