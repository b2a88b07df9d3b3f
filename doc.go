// Package goAuthSync manages an authenticated client session for one
// execution context (a browser tab, a desktop window, a CLI process) and
// keeps every context that shares the same durable storage in agreement.
//
// A [Synchronizer] owns the in-memory session, restores it from storage at
// start-up, mutates it on login and logout, and reconciles it with change
// notifications that other contexts produce when they write the shared
// storage slots.
//
// # Architecture boundaries
//
// goAuthSync is the public surface. It exposes [Synchronizer], [Builder],
// [Config], the event and metrics types, and the collaborator interfaces
// ([AccountAPI], [Navigator]). Persistence lives in session and storage,
// HTTP in account, and asynchronous event delivery under internal/.
//
// # Consistency model
//
// Within one Synchronizer all methods are safe for concurrent use. Across
// contexts the most recent write observed by the storage substrate wins;
// there is no versioning or cross-context locking.
//
// # What this package must NOT do
//
//   - Refresh or rotate tokens, or validate them against a server.
//   - Write to storage while reconciling a foreign change.
//   - Retry failed account API calls.
package goAuthSync
