// Package redis provides a Redis-backed [storage.Substrate].
//
// Slots are stored as plain string keys under a prefix. Every mutation is
// executed in a MULTI block together with a PUBLISH of a JSON change envelope
// on "<prefix>:changes". Each Substrate value carries a random origin ID and
// drops envelopes it published itself, which gives the same foreign-write
// semantics as browser storage events across processes sharing one Redis.
//
// # What this package must NOT do
//
//   - Interpret slot contents (the session package owns the record format).
//   - Deliver a change back to the view that produced it.
package redis
