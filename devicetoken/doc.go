// Package devicetoken issues and verifies the ed25519-signed device
// assertions that back biometric login. The token is minted when the user
// enables biometric login and exchanged for a session after a successful
// hardware biometric prompt; the user's password is never involved.
//
// # What this package must NOT do
//
//   - Store tokens. Persistence belongs to the secure store.
//   - Talk to biometric hardware. The gateway abstraction owns prompting.
package devicetoken
