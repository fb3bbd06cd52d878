package securestore

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend storage failures (Redis down, timeout).
var ErrUnavailable = errors.New("secure store unavailable")

// ErrAccountLimit is returned by SaveAccount when the remembered-account
// ceiling would be exceeded. The existing records are left untouched.
var ErrAccountLimit = errors.New("account limit exceeded")

// PinData is the PIN-to-identifier association for one profile. It is
// written after a successful password or biometric login and read back
// by PIN login. The PIN itself never reaches this store; verification
// happens on the backend.
type PinData struct {
	Identifier string `json:"identifier"`
	UserID     string `json:"user_id"`
	ProfileID  string `json:"profile_id"`
}

// AccountRecord is one locally remembered login context, including the
// token pair needed for a cold switch back into it.
type AccountRecord struct {
	UserID       string `json:"user_id"`
	ProfileID    string `json:"profile_id"`
	EntityID     string `json:"entity_id"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SavedAt      int64  `json:"saved_at"`
}

// TokenStore persists the active access/refresh token pair. The pair is
// a single shared resource: writes and clears are atomic, never torn.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokenPair(ctx context.Context, access, refresh string) error
	ClearTokens(ctx context.Context) error
}

// ProfilePinStore persists per-profile PIN associations and the last
// active profile id. Keyed by profile so several profiles can stay
// remembered on one device.
type ProfilePinStore interface {
	StoreProfilePinData(ctx context.Context, profileID string, data PinData) error
	ProfilePinData(ctx context.Context, profileID string) (*PinData, error)
	ClearProfilePinData(ctx context.Context, profileID string) error
	SetLastActiveProfile(ctx context.Context, profileID string) error
	LastActiveProfileID(ctx context.Context) (string, error)
}

// AccountStore persists the bounded set of remembered accounts.
type AccountStore interface {
	Accounts(ctx context.Context) ([]AccountRecord, error)
	Account(ctx context.Context, userID string) (*AccountRecord, error)
	SaveAccount(ctx context.Context, rec AccountRecord, maxAccounts int) error
	RemoveAccount(ctx context.Context, userID string) error
}

// DeviceTokenStore persists the biometric device assertion token.
type DeviceTokenStore interface {
	DeviceToken(ctx context.Context) (string, error)
	SetDeviceToken(ctx context.Context, token string) error
	ClearDeviceToken(ctx context.Context) error
}

// WalletStateStore persists the last wallet unlock time so the user is
// not forced to re-unlock on every process restart.
type WalletStateStore interface {
	WalletUnlockedAt(ctx context.Context) (time.Time, bool, error)
	SetWalletUnlockedAt(ctx context.Context, t time.Time) error
	ClearWalletUnlock(ctx context.Context) error
}

// Store is the full secure-storage surface consumed by the core.
type Store interface {
	TokenStore
	ProfilePinStore
	AccountStore
	DeviceTokenStore
	WalletStateStore

	// Wipe removes every record owned by the store. Debug-only full reset.
	Wipe(ctx context.Context) error
}
