package swapcore

import "errors"

var (
	// ErrCoreNotReady is returned when a service is used before Build completed.
	ErrCoreNotReady = errors.New("core not initialized")
	// ErrNoAccessToken marks the expected unauthenticated state on first
	// launch. It is never surfaced to the user as a failure.
	ErrNoAccessToken = errors.New("no access token")
	// ErrAuthOperationInFlight is returned when a session check or login is
	// attempted while a prior auth transition has not yet committed.
	ErrAuthOperationInFlight = errors.New("auth operation already in flight")
	// ErrNotAuthenticated is returned by operations that require an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMaxAccountsExceeded is returned when saving a 6th remembered account.
	// The stored accounts are left unchanged.
	ErrMaxAccountsExceeded = errors.New("max accounts exceeded")
	// ErrAccountNotFound is returned when switching to an unknown remembered account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoPINUser is returned for PIN login without a stored PIN association.
	ErrNoPINUser = errors.New("pin not set up for this account")
	// ErrDifferentUser is the profile-switch security abort: the
	// re-authentication step resolved to a different user than the one who
	// started the switch.
	ErrDifferentUser = errors.New("re-authentication resolved to a different user")
	// ErrSwitchInProgress is returned when a profile switch is requested
	// while another is in flight. Requests are rejected, not queued.
	ErrSwitchInProgress = errors.New("profile switch already in progress")
	// ErrProfileNotFound is returned when the switch target is not in the
	// available-profiles list.
	ErrProfileNotFound = errors.New("target profile not found")
	// ErrBiometricUnavailable is returned when biometric hardware is absent,
	// not enrolled, or biometric login was never enabled.
	ErrBiometricUnavailable = errors.New("biometric authentication unavailable")
	// ErrBiometricFailed is returned when the hardware prompt rejects the user.
	ErrBiometricFailed = errors.New("biometric authentication failed")
	// ErrBiometricCancelled marks a user-initiated cancel of the biometric
	// prompt. Expected non-error; never produces an alert.
	ErrBiometricCancelled = errors.New("biometric prompt cancelled")
)
