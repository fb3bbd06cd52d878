// Package securestore persists the device-local authentication state:
// the active token pair, per-profile PIN associations, the bounded list
// of remembered accounts, the biometric device token, and the wallet
// unlock timestamp.
//
// # Implementations
//
// [RedisStore] keeps everything under a single key prefix and uses Lua
// scripts where multi-key atomicity matters (token-pair writes/clears,
// capped account saves). [MemoryStore] is a process-local implementation
// for tests and hosts without Redis.
//
// # Atomicity contract
//
// The token pair is written and cleared as a unit. A reader never
// observes an access token without its matching refresh token; a torn
// pair would surface as a spurious logout downstream.
//
// # What this package must NOT do
//
//   - Interpret tokens or PIN data. It stores opaque values.
//   - Import the root package (no upward imports).
package securestore
