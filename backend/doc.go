// Package backend defines the typed contract for the session and login
// HTTP endpoints, plus the production JSON-over-HTTP implementation.
//
// # Error model
//
// Every failure is an *[Error] carrying a machine-readable code. Callers
// branch on codes and the Transient/AuthFailure predicates, never on
// message text.
//
// # Retry policy
//
// Timeouts, connection errors, and 5xx responses are retried exactly
// once after a fixed backoff. 401/403 responses are never retried; the
// credential or session is gone and a retry cannot change that.
//
// # What this package must NOT do
//
//   - Persist tokens or sessions. Storage belongs to securestore.
//   - Decide authentication state. That belongs to the root package.
package backend
