// Package account is the HTTP client for the remote account API: login,
// registration, and username/password recovery.
//
// Every request is a JSON POST. Non-2xx responses and transport failures are
// mapped to a single canonical [*Error] by [NormalizeError], whatever shape
// the server used for its error payload.
//
// # What this package must NOT do
//
//   - Hold session state or touch durable storage.
//   - Retry requests. Every failure is reported once to the caller.
//   - Impose its own timeout unless [Config.Timeout] asks for one.
package account
