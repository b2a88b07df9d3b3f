// Package middleware connects a goAuthSync session to net/http.
//
// # Adapters
//
//   - [Guard] admits requests only while the session is authenticated and
//     redirects the rest to the login route.
//   - [RequireRole] additionally checks the profile role.
//   - [BearerTransport] attaches the session token to outgoing requests.
//
// # What this package must NOT do
//
//   - Parse, verify or refresh tokens.
//   - Write session storage; [BearerTransport] may only ask the session to
//     clear itself.
package middleware
