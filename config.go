package swapcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the orchestration core. Configure it
// before Build; treat it as immutable afterwards.
type Config struct {
	Backend       BackendConfig
	Session       SessionConfig
	Login         LoginConfig
	Accounts      AccountConfig
	ProfileSwitch ProfileSwitchConfig
	Wallet        WalletConfig
	AppLock       AppLockConfig
	DeviceToken   DeviceTokenConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig tunes the HTTP client built when no explicit
// backend.Client is supplied to the Builder.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	// RetryBackoff is the fixed delay before the single transient retry.
	RetryBackoff time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig tunes session validation and storage.
type SessionConfig struct {
	// StorePrefix namespaces every secure-store key.
	StorePrefix string
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig tunes the login strategies.
type LoginConfig struct {
	PINLength int
	// BiometricPrompt is shown by the hardware prompt on biometric login.
	BiometricPrompt string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig bounds the remembered-accounts list.
type AccountConfig struct {
	MaxAccounts int
}

/*
====================================
PROFILE SWITCH CONFIG
====================================
*/

// ProfileSwitchConfig tunes the warm-switch orchestrator.
type ProfileSwitchConfig struct {
	// RequireFreshAuth demands a fresh biometric (or PIN) assertion even
	// though the user is already logged in. The target profile may carry
	// elevated trust.
	RequireFreshAuth bool
	StepUpPrompt     string
}

/*
====================================
WALLET CONFIG
====================================
*/

// WalletConfig tunes the wallet security tier.
type WalletConfig struct {
	// IdleTimeout bounds how long a restored unlock stays valid across a
	// process restart. Shares the app-lock timing rule.
	IdleTimeout  time.Duration
	UnlockPrompt string
}

/*
====================================
APP LOCK CONFIG
====================================
*/

// AppLockConfig tunes idle/background locking.
type AppLockConfig struct {
	Enabled bool
	// BackgroundThreshold is how long the app may stay backgrounded
	// before foregrounding forces a lock.
	BackgroundThreshold time.Duration
}

/*
====================================
DEVICE TOKEN CONFIG
====================================
*/

// DeviceTokenConfig tunes biometric device assertions. When PrivateKey
// is empty, biometric login is disabled.
type DeviceTokenConfig struct {
	TTL        time.Duration
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	DeviceID   string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig tunes in-process metric recording.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{
			RequestTimeout: 10 * time.Second,
			RetryBackoff:   500 * time.Millisecond,
		},
		Session: SessionConfig{
			StorePrefix: "swapcore",
		},
		Login: LoginConfig{
			PINLength:       6,
			BiometricPrompt: "Confirm your identity to sign in",
		},
		Accounts: AccountConfig{
			MaxAccounts: 5,
		},
		ProfileSwitch: ProfileSwitchConfig{
			RequireFreshAuth: true,
			StepUpPrompt:     "Confirm your identity to switch profiles",
		},
		Wallet: WalletConfig{
			IdleTimeout:  3 * time.Minute,
			UnlockPrompt: "Unlock your wallet",
		},
		AppLock: AppLockConfig{
			Enabled:             true,
			BackgroundThreshold: 3 * time.Minute,
		},
		DeviceToken: DeviceTokenConfig{
			TTL:    90 * 24 * time.Hour,
			Issuer: "swapcore",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.DeviceToken.PrivateKey = cloneBytes(cfg.DeviceToken.PrivateKey)
	out.DeviceToken.PublicKey = cloneBytes(cfg.DeviceToken.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations that would put the core into an
// undefined state at runtime.
func (c *Config) Validate() error {
	if c.Login.PINLength < 4 || c.Login.PINLength > 12 {
		return errors.New("pin length must be between 4 and 12")
	}
	if c.Accounts.MaxAccounts <= 0 {
		return errors.New("max accounts must be positive")
	}
	if c.AppLock.Enabled && c.AppLock.BackgroundThreshold <= 0 {
		return errors.New("app lock threshold must be positive")
	}
	if c.Wallet.IdleTimeout <= 0 {
		return errors.New("wallet idle timeout must be positive")
	}
	if c.Backend.RequestTimeout < 0 || c.Backend.RetryBackoff < 0 {
		return errors.New("backend timings must be non-negative")
	}
	if len(c.DeviceToken.PrivateKey) > 0 {
		if c.DeviceToken.TTL <= 0 {
			return errors.New("device token TTL must be positive")
		}
		if c.DeviceToken.DeviceID == "" {
			return errors.New("device token requires a device id")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("audit buffer size must be non-negative")
	}
	return nil
}
