package swapcore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// WalletSecurity gates the elevated wallet tier. LevelWalletUnlocked is
// reachable only from LevelAuthenticated and always through a fresh
// biometric assertion; a recent unlock may be restored across a process
// restart within the idle timeout.
type WalletSecurity struct {
	store     securestore.Store
	state     *AuthStateMachine
	biometric BiometricGateway
	cfg       WalletConfig
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func newWalletSecurity(deps coreDeps) *WalletSecurity {
	return &WalletSecurity{
		store:     deps.store,
		state:     deps.state,
		biometric: deps.biometric,
		cfg:       deps.cfg.Wallet,
		audit:     deps.audit,
		metrics:   deps.metrics,
		log:       deps.log,
		now:       deps.now,
	}
}

// RequestAccess attempts to enter the wallet tier. Already unlocked is
// an immediate success; unauthenticated is an immediate denial. A
// cancelled prompt is an expected non-error.
func (w *WalletSecurity) RequestAccess(ctx context.Context) (WalletAccessResult, error) {
	switch w.state.Level() {
	case LevelWalletUnlocked:
		return WalletAccessResult{Success: true, Level: LevelWalletUnlocked}, nil
	case LevelGuest:
		w.metrics.Inc(metrics.MetricWalletUnlockDenied)
		return WalletAccessResult{Success: false, Level: LevelGuest}, ErrNotAuthenticated
	}

	if w.biometric == nil || !w.biometric.HasHardware() || !w.biometric.IsEnrolled() {
		w.metrics.Inc(metrics.MetricWalletUnlockDenied)
		return WalletAccessResult{Success: false, Level: w.state.Level()}, ErrBiometricUnavailable
	}

	res := w.biometric.Authenticate(ctx, w.cfg.UnlockPrompt)
	if res.Cancelled {
		return WalletAccessResult{Success: false, Level: w.state.Level()}, nil
	}
	if !res.Success {
		w.metrics.Inc(metrics.MetricWalletUnlockDenied)
		w.recordAudit(false, "prompt rejected")
		if res.Err != nil {
			return WalletAccessResult{Success: false, Level: w.state.Level()}, fmt.Errorf("%w: %v", ErrBiometricFailed, res.Err)
		}
		return WalletAccessResult{Success: false, Level: w.state.Level()}, ErrBiometricFailed
	}

	if !w.state.setWalletUnlocked() {
		// Level changed underneath the prompt, likely a logout.
		w.metrics.Inc(metrics.MetricWalletUnlockDenied)
		return WalletAccessResult{Success: false, Level: w.state.Level()}, ErrNotAuthenticated
	}

	if err := w.store.SetWalletUnlockedAt(ctx, w.now()); err != nil {
		w.log.Warn("persisting wallet unlock time failed", zap.Error(err))
	}

	w.metrics.Inc(metrics.MetricWalletUnlocked)
	w.recordAudit(true, "")
	return WalletAccessResult{Success: true, Level: LevelWalletUnlocked}, nil
}

// Lock drops the wallet tier back to LevelAuthenticated. Idempotent.
func (w *WalletSecurity) Lock(ctx context.Context) {
	if err := w.store.ClearWalletUnlock(ctx); err != nil {
		w.log.Warn("clearing wallet unlock time failed", zap.Error(err))
	}
	if w.state.Level() != LevelWalletUnlocked {
		return
	}
	w.state.setWalletLocked()
	w.metrics.Inc(metrics.MetricWalletLocked)
	w.recordAuditEvent(auditWalletLock, true, "")
}

// RestoreUnlockState re-enters the wallet tier after a process restart
// when the last unlock is recent enough. An expired record is cleared.
func (w *WalletSecurity) RestoreUnlockState(ctx context.Context) error {
	unlockedAt, ok, err := w.store.WalletUnlockedAt(ctx)
	if err != nil {
		return fmt.Errorf("read wallet unlock time: %w", err)
	}
	if !ok {
		return nil
	}

	if w.now().Sub(unlockedAt) >= w.cfg.IdleTimeout {
		if err := w.store.ClearWalletUnlock(ctx); err != nil {
			w.log.Warn("clearing expired wallet unlock failed", zap.Error(err))
		}
		return nil
	}

	if w.state.setWalletUnlocked() {
		w.metrics.Inc(metrics.MetricWalletUnlocked)
		w.recordAudit(true, "restored")
	}
	return nil
}

func (w *WalletSecurity) recordAudit(success bool, detail string) {
	w.recordAuditEvent(auditWalletUnlock, success, detail)
}

func (w *WalletSecurity) recordAuditEvent(event string, success bool, detail string) {
	w.audit.Emit(context.Background(), audit.Event{
		Timestamp: w.now(),
		EventType: event,
		AuthLevel: w.state.Level().String(),
		Success:   success,
		Error:     detail,
	})
}
