// Package token reads bearer tokens issued by the account API.
//
// The client never holds the signing key, so tokens are decoded without
// signature verification and the result is advisory only: it is used to
// notice an already-expired token, never to grant access.
package token
