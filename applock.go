package swapcore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
)

// IsBackgroundTimeoutExpired reports whether an app backgrounded at
// backgroundedAt must be locked when foregrounded at now. A zero
// backgroundedAt means the app never left the foreground.
func IsBackgroundTimeoutExpired(now, backgroundedAt time.Time, threshold time.Duration) bool {
	if backgroundedAt.IsZero() {
		return false
	}
	return now.Sub(backgroundedAt) >= threshold
}

// AppLockService locks the app after it has been backgrounded for too
// long and on session-expiry signals. Locking the app also drops the
// wallet tier; it never logs the user out. Only authenticated sessions
// are ever locked: a guest backgrounding the app is a no-op.
type AppLockService struct {
	cfg       AppLockConfig
	state     *AuthStateMachine
	wallet    *WalletSecurity
	biometric BiometricGateway
	bus       *Bus
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu        sync.Mutex
	lock      LockState
	transient bool
	timer     *time.Timer

	unsubscribe func()
}

func newAppLockService(deps coreDeps) *AppLockService {
	s := &AppLockService{
		cfg:       deps.cfg.AppLock,
		state:     deps.state,
		wallet:    deps.wallet,
		biometric: deps.biometric,
		bus:       deps.bus,
		audit:     deps.audit,
		metrics:   deps.metrics,
		log:       deps.log,
		now:       deps.now,
		afterFunc: time.AfterFunc,
	}

	// A failed mid-session refresh locks the app in place instead of
	// logging out, so the user resumes where they were after unlocking.
	s.unsubscribe = deps.bus.On(EventSessionExpired, func(Event) {
		s.metrics.Inc(metrics.MetricSessionExpiredSignal)
		s.forceLock("session expired")
	})

	return s
}

// State returns the current lock snapshot.
func (s *AppLockService) State() LockState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock
}

// MarkTransientInterruption suppresses the next background event.
// Biometric prompts and system dialogs background the app briefly;
// those must not start the lock clock.
func (s *AppLockService) MarkTransientInterruption() {
	s.mu.Lock()
	s.transient = true
	s.mu.Unlock()
}

// OnBackground records the moment the app left the foreground and arms
// the lock timer in case the process stays alive past the threshold.
func (s *AppLockService) OnBackground() {
	if !s.cfg.Enabled {
		return
	}
	if s.state.Level() < LevelAuthenticated {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transient {
		s.transient = false
		return
	}
	if s.lock.IsLocked {
		return
	}

	s.lock.BackgroundedAt = s.now()
	s.stopTimerLocked()
	s.timer = s.afterFunc(s.cfg.BackgroundThreshold, func() {
		s.forceLock("background timeout")
	})
}

// OnForeground applies the timing rule: past the threshold the app
// locks, under it nothing happens. The backgrounded timestamp is
// cleared either way.
func (s *AppLockService) OnForeground() {
	if !s.cfg.Enabled {
		return
	}

	s.mu.Lock()
	s.stopTimerLocked()
	backgroundedAt := s.lock.BackgroundedAt
	s.lock.BackgroundedAt = time.Time{}
	expired := IsBackgroundTimeoutExpired(s.now(), backgroundedAt, s.cfg.BackgroundThreshold)
	s.mu.Unlock()

	if expired {
		s.forceLock("background timeout")
	}
}

// Unlock verifies the user via the biometric prompt and clears the
// lock. Unlocking an unlocked app is a no-op success.
func (s *AppLockService) Unlock(ctx context.Context) error {
	s.mu.Lock()
	locked := s.lock.IsLocked
	s.mu.Unlock()
	if !locked {
		return nil
	}

	if s.biometric == nil || !s.biometric.HasHardware() || !s.biometric.IsEnrolled() {
		return ErrBiometricUnavailable
	}

	// The prompt backgrounds the app on some platforms.
	s.MarkTransientInterruption()
	res := s.biometric.Authenticate(ctx, "Unlock the app")
	if res.Cancelled {
		return ErrBiometricCancelled
	}
	if !res.Success {
		s.recordAudit(auditAppUnlock, false, "prompt rejected")
		return ErrBiometricFailed
	}

	s.mu.Lock()
	s.lock.IsLocked = false
	s.lock.BackgroundedAt = time.Time{}
	s.lock.LastUnlock = s.now()
	s.mu.Unlock()

	s.metrics.Inc(metrics.MetricAppUnlocked)
	s.recordAudit(auditAppUnlock, true, "")
	s.bus.Emit(Event{Type: EventAppUnlocked})
	return nil
}

// Close releases the lock timer and the bus subscription.
func (s *AppLockService) Close() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *AppLockService) forceLock(reason string) {
	if s.state.Level() < LevelAuthenticated {
		return
	}

	s.mu.Lock()
	if s.lock.IsLocked {
		s.mu.Unlock()
		return
	}
	s.lock.IsLocked = true
	s.lock.BackgroundedAt = time.Time{}
	s.stopTimerLocked()
	s.mu.Unlock()

	// The wallet tier never survives an app lock.
	s.wallet.Lock(context.Background())

	s.metrics.Inc(metrics.MetricAppLocked)
	s.recordAudit(auditAppLock, true, reason)
	s.log.Info("app locked", zap.String("reason", reason))
	s.bus.Emit(Event{Type: EventAppLocked, Reason: reason})
}

func (s *AppLockService) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *AppLockService) recordAudit(event string, success bool, detail string) {
	s.audit.Emit(context.Background(), audit.Event{
		Timestamp: s.now(),
		EventType: event,
		Success:   success,
		Error:     detail,
	})
}
