// Package events delivers session lifecycle events to a sink.
//
// # Architecture boundaries
//
// This package owns the [Event] model, the stock sinks, and the [Dispatcher].
// The root package re-exports the model and sinks; it decides which events
// to emit.
//
// # Delivery guarantees
//
// Events reach a sink one at a time, in emission order, numbered by Seq.
// Under pressure the oldest undelivered event is the one discarded, so the
// last event a sink sees always carries the current session.
//
// # What this package must NOT do
//
//   - Block the emitting goroutine when configured with DropIfFull.
//   - Serialize bearer tokens.
//   - Import goAuthSync (no import cycles).
package events
