package swapcore

import (
	"context"
	"strings"
	"time"
)

// AuthLevel is the coarse authorization tier. It is monotonic within a
// session except for explicit lock and logout resets.
type AuthLevel uint8

const (
	// LevelGuest is the unauthenticated state.
	LevelGuest AuthLevel = iota
	// LevelAuthenticated means a validated session exists.
	LevelAuthenticated
	// LevelWalletUnlocked is the elevated tier gating financial operations.
	// Reachable only from LevelAuthenticated.
	LevelWalletUnlocked
)

func (l AuthLevel) String() string {
	switch l {
	case LevelGuest:
		return "guest"
	case LevelAuthenticated:
		return "authenticated"
	case LevelWalletUnlocked:
		return "wallet_unlocked"
	default:
		return "unknown"
	}
}

// ProfileType distinguishes personal from business profiles. The backend
// resolves the type; the core only relays it.
type ProfileType string

const (
	ProfilePersonal ProfileType = "personal"
	ProfileBusiness ProfileType = "business"
)

// SessionData is the normalized session reconstructed from a backend
// session check or login. Owned exclusively by SessionManager; everything
// handed out is a copy.
type SessionData struct {
	UserID        string
	ProfileID     string
	EntityID      string
	Email         string
	Username      string
	FirstName     string
	LastName      string
	BusinessName  string
	ProfileType   ProfileType
	SessionID     string
	CreatedAt     time.Time
	LastValidated time.Time
}

// User is the read-only UI-facing projection of a session.
type User struct {
	UserID      string
	ProfileID   string
	EntityID    string
	DisplayName string
	Email       string
	ProfileType ProfileType
}

// User projects the session into its UI-facing shape.
func (s *SessionData) User() *User {
	if s == nil {
		return nil
	}

	display := s.BusinessName
	if s.ProfileType != ProfileBusiness || display == "" {
		display = strings.TrimSpace(s.FirstName + " " + s.LastName)
	}
	if display == "" {
		display = s.Username
	}
	if display == "" {
		display = s.Email
	}

	return &User{
		UserID:      s.UserID,
		ProfileID:   s.ProfileID,
		EntityID:    s.EntityID,
		DisplayName: display,
		Email:       s.Email,
		ProfileType: s.ProfileType,
	}
}

// Account is one locally remembered login context. At most
// [AccountConfig.MaxAccounts] may exist per device.
type Account struct {
	UserID      string
	ProfileID   string
	EntityID    string
	DisplayName string
	Email       string
	FirstName   string
	LastName    string
}

// LockState is the app-lock snapshot. Zero timestamps mean "not set".
type LockState struct {
	IsLocked       bool
	BackgroundedAt time.Time
	LastUnlock     time.Time
}

// TransitionPhase is the derived phase of the loading gate.
type TransitionPhase uint8

const (
	PhaseIdle TransitionPhase = iota
	PhaseAuthCompleting
	PhaseDataLoading
	PhaseUIPreparing
	PhaseTransitionComplete
)

func (p TransitionPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAuthCompleting:
		return "auth_completing"
	case PhaseDataLoading:
		return "data_loading"
	case PhaseUIPreparing:
		return "ui_preparing"
	case PhaseTransitionComplete:
		return "transition_complete"
	default:
		return "unknown"
	}
}

// OperationType classifies a named in-flight operation.
type OperationType string

const (
	OperationAuth        OperationType = "auth"
	OperationDataLoading OperationType = "data_loading"
	OperationNavigation  OperationType = "navigation"
)

// OperationDescriptor names one in-flight operation the UI waits on.
type OperationDescriptor struct {
	ID          string
	Type        OperationType
	Description string
}

// LoadingState is the fully-derived readiness snapshot handed to
// listeners. It is recomputed, never patched in place.
type LoadingState struct {
	IsLoading        bool
	CanShowUI        bool
	Phase            TransitionPhase
	ActiveOperations []OperationDescriptor
	PrimaryOperation *OperationDescriptor
}

// SessionCheckResult is returned by ValidateAndRestoreSession. An absent
// token yields Valid=false with Err wrapping [ErrNoAccessToken]; that is
// the expected first-launch path, not a failure.
type SessionCheckResult struct {
	Valid bool
	User  *User
	Err   error
}

// Result codes carried by LoginResult and ProfileSwitchResult so the UI
// can offer the right remediation without parsing message text.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeNoPINUser            = "NO_PIN_USER"
	CodeMaxAccountsExceeded  = "MAX_ACCOUNTS_EXCEEDED"
	CodeDifferentUser        = "DIFFERENT_USER"
	CodeBiometricFailed      = "BIOMETRIC_FAILED"
	CodeBiometricCancelled   = "BIOMETRIC_CANCELLED"
	CodeBiometricUnavailable = "BIOMETRIC_UNAVAILABLE"
	CodeProfileNotFound      = "PROFILE_NOT_FOUND"
	CodeRateLimited          = "RATE_LIMITED"
	CodeOperationInFlight    = "OPERATION_IN_FLIGHT"
	CodeNetworkError         = "NETWORK_ERROR"
)

// LoginResult is the normalized outcome shared by all three login
// strategies. Expected failures are reported in the result, not as errors.
type LoginResult struct {
	Success bool
	User    *User
	Message string
	Code    string
}

// WalletAccessResult is returned by WalletSecurity.RequestAccess.
type WalletAccessResult struct {
	Success bool
	Level   AuthLevel
}

// ProfileSwitchContext is the transient value object that exists for the
// duration of one warm switch. Destroyed on completion or abort.
type ProfileSwitchContext struct {
	TargetProfileID  string
	SourceUserID     string
	RequireBiometric bool
}

// BiometricResult is the outcome of one hardware prompt. Cancelled is an
// expected non-error and never produces an alert.
type BiometricResult struct {
	Success   bool
	Cancelled bool
	Err       error
}

// BiometricGateway abstracts the device biometric hardware.
type BiometricGateway interface {
	HasHardware() bool
	IsEnrolled() bool
	Authenticate(ctx context.Context, promptMessage string) BiometricResult
}

// CacheInvalidator is the single entry point for clearing session-scoped
// local caches. Called on logout and synchronously during a committed
// profile switch, before any UI read.
type CacheInvalidator interface {
	ClearAllCachedData(ctx context.Context) error
}
