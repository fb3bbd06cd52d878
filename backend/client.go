package backend

import (
	"context"
	"errors"
	"fmt"
)

// Machine-readable error codes shared with the backend. The orchestration
// core branches on these, never on message text.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeProfileNotFound    = "PROFILE_NOT_FOUND"
	CodeRateLimited        = "RATE_LIMITED"
	CodeSessionExpired     = "SESSION_EXPIRED"
	CodeDifferentUser      = "DIFFERENT_USER"
	CodePinNotConfigured   = "PIN_NOT_CONFIGURED"
	CodeDeviceNotTrusted   = "DEVICE_NOT_TRUSTED"
	CodeTimeout            = "TIMEOUT"
	CodeNetwork            = "NETWORK_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a machine-readable backend failure. Transient errors may be
// retried once by the caller; auth failures (401/403) never are.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Transient reports whether the failure is worth one retry.
func (e *Error) Transient() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case CodeTimeout, CodeNetwork:
		return true
	}
	return e.HTTPStatus >= 500
}

// AuthFailure reports whether the backend rejected the credentials or
// session outright. Retrying cannot help.
func (e *Error) AuthFailure() bool {
	if e == nil {
		return false
	}
	return e.HTTPStatus == 401 || e.HTTPStatus == 403
}

// AsError extracts a backend *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// Session is the backend's view of an authenticated session. The core
// projects it into its own SessionData shape.
type Session struct {
	UserID       string `json:"user_id"`
	ProfileID    string `json:"profile_id"`
	EntityID     string `json:"entity_id"`
	Email        string `json:"email,omitempty"`
	Username     string `json:"username,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	ProfileType  string `json:"profile_type"`
	SessionID    string `json:"session_id"`
	CreatedAt    int64  `json:"created_at"`
}

// LoginResponse is the unified shape returned by every login strategy
// and by the profile-switch endpoint. The backend decides whether the
// identifier resolves to a personal or business profile; the core only
// relays the outcome.
type LoginResponse struct {
	Session      Session `json:"session"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
}

// Profile is one entry of the available-profiles list. Cached display
// data from here feeds the optimistic apply during a warm switch.
type Profile struct {
	ProfileID    string `json:"profile_id"`
	EntityID     string `json:"entity_id"`
	ProfileType  string `json:"profile_type"`
	DisplayName  string `json:"display_name"`
	BusinessName string `json:"business_name,omitempty"`
	RequireAuth  bool   `json:"require_auth"`
}

// Client is the contract for the session/login endpoints. The HTTP
// implementation lives in this package; tests substitute fakes.
type Client interface {
	CheckSession(ctx context.Context, accessToken string) (*Session, error)
	Login(ctx context.Context, identifier, password string) (*LoginResponse, error)
	PinLogin(ctx context.Context, identifier, pin, profileID string) (*LoginResponse, error)
	BiometricLogin(ctx context.Context, deviceToken string) (*LoginResponse, error)
	SwitchProfile(ctx context.Context, accessToken, targetProfileID string) (*LoginResponse, error)
	AvailableProfiles(ctx context.Context, accessToken string) ([]Profile, error)
	RevokeSession(ctx context.Context, accessToken string) error
}
