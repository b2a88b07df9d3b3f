// Package session provides the in-memory session model, the profile codec,
// and the durable two-slot record store.
//
// # Durable record
//
// A logged-in session is persisted as two independently addressable slots:
// the bearer token as plain text and the user profile as a JSON object. The
// slots are written and cleared together, but readers must tolerate one slot
// being present without the other and treat that as a corrupt record.
//
// # Architecture boundaries
//
// This package owns [Session], [Profile], [Record] and [Store]. It does NOT
// call the account API, navigate, or subscribe to storage changes; those
// responsibilities belong to the Synchronizer.
//
// # What this package must NOT do
//
//   - Import goAuthSync or account (no upward imports).
//   - Leave a half-written record behind on Delete.
package session
