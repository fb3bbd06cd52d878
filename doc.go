// Package swapcore is the session and identity orchestration core of
// the Swap mobile app. It owns the auth state machine, session
// validation and restoration, the three login strategies, multi-account
// and profile switching, the wallet security tier, app locking and the
// loading readiness gate.
//
// Assemble a Core with the Builder:
//
//	core, err := swapcore.New().
//		WithConfig(cfg).
//		WithRedis(redisClient).
//		WithBiometricGateway(gw).
//		Build()
//
// # Architecture boundaries
//
// The Core is the only owner of auth state. The UI layer reads
// snapshots (SessionData copies, LoadingState, LockState) and calls
// operations; it never mutates state directly. Backend communication
// goes through the backend package, persistence through securestore.
//
// # What this package must NOT do
//
// It never renders UI, never stores a PIN or password locally, and
// never decides profile-type resolution itself; the backend does.
package swapcore
