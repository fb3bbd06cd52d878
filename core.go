package swapcore

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/devicetoken"
	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// coreDeps bundles the shared dependencies handed to each service
// constructor during Build.
type coreDeps struct {
	cfg       Config
	store     securestore.Store
	client    backend.Client
	biometric BiometricGateway
	cache     CacheInvalidator
	devTokens *devicetoken.Manager
	bus       *Bus
	state     *AuthStateMachine
	sessions  *SessionManager
	wallet    *WalletSecurity
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func newSubscriptionID() string {
	return uuid.NewString()
}

// Core is the assembled session and identity orchestration engine. One
// Core instance owns all auth state for the process.
type Core struct {
	config   Config
	bus      *Bus
	state    *AuthStateMachine
	sessions *SessionManager
	login    *LoginService
	accounts *AccountSwitcher
	profiles *ProfileSwitchOrchestrator
	wallet   *WalletSecurity
	appLock  *AppLockService
	loading  *LoadingOrchestrator
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
}

// Events exposes the core's event bus.
func (c *Core) Events() *Bus { return c.bus }

// Auth exposes the auth state machine.
func (c *Core) Auth() *AuthStateMachine { return c.state }

// Sessions exposes session validation, logout and cleanup.
func (c *Core) Sessions() *SessionManager { return c.sessions }

// Login exposes the login strategies.
func (c *Core) Login() *LoginService { return c.login }

// Accounts exposes the remembered-accounts list and cold switching.
func (c *Core) Accounts() *AccountSwitcher { return c.accounts }

// Profiles exposes the warm profile-switch orchestrator.
func (c *Core) Profiles() *ProfileSwitchOrchestrator { return c.profiles }

// Wallet exposes the wallet security tier.
func (c *Core) Wallet() *WalletSecurity { return c.wallet }

// AppLock exposes background/idle locking.
func (c *Core) AppLock() *AppLockService { return c.appLock }

// Loading exposes the readiness aggregator.
func (c *Core) Loading() *LoadingOrchestrator { return c.loading }

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (c *Core) MetricsSnapshot() MetricsSnapshot { return c.metrics.Snapshot() }

// AuditDropped reports how many audit events were dropped under
// backpressure.
func (c *Core) AuditDropped() uint64 { return c.audit.Dropped() }

// Close flushes the audit dispatcher and releases timers. The Core must
// not be used afterwards.
func (c *Core) Close() {
	c.appLock.Close()
	c.audit.Close()
}
