// Package storage defines the durable key-value substrate the session
// synchronizer persists into.
//
// # Foreign-write semantics
//
// A [Substrate] value represents one execution context's view of shared
// storage. Handlers registered through [Substrate.Subscribe] are invoked only
// for mutations made through a different view of the same underlying store,
// never for writes made through the subscribing view itself.
//
// # Architecture boundaries
//
// Backends live in sub-packages (memory, redis, sqlite). This package owns the
// interface and the [Change] envelope only.
package storage
