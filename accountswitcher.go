package swapcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// AccountSwitcher manages the bounded set of remembered accounts and
// the cold switch between them. A cold switch swaps the active token
// pair for the target account's stored pair and revalidates; on failure
// the previous pair is restored so the current session survives.
type AccountSwitcher struct {
	store    securestore.Store
	client   backend.Client
	sessions *SessionManager
	state    *AuthStateMachine
	cache    CacheInvalidator
	cfg      AccountConfig
	audit    *audit.Dispatcher
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time

	switchMu sync.Mutex
}

func newAccountSwitcher(deps coreDeps) *AccountSwitcher {
	return &AccountSwitcher{
		store:    deps.store,
		client:   deps.client,
		sessions: deps.sessions,
		state:    deps.state,
		cache:    deps.cache,
		cfg:      deps.cfg.Accounts,
		audit:    deps.audit,
		metrics:  deps.metrics,
		log:      deps.log,
		now:      deps.now,
	}
}

// Accounts lists the remembered accounts, most recently saved first.
// Tokens never leave this package.
func (a *AccountSwitcher) Accounts(ctx context.Context) ([]Account, error) {
	recs, err := a.store.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	out := make([]Account, 0, len(recs))
	for _, r := range recs {
		out = append(out, Account{
			UserID:      r.UserID,
			ProfileID:   r.ProfileID,
			EntityID:    r.EntityID,
			DisplayName: r.DisplayName,
			Email:       r.Email,
			FirstName:   r.FirstName,
			LastName:    r.LastName,
		})
	}
	return out, nil
}

// SaveCurrentAccount remembers the active session for later cold
// switches. Saving an already remembered account refreshes it in place;
// a new account beyond the ceiling is rejected atomically with
// ErrMaxAccountsExceeded and the stored set is left unchanged.
func (a *AccountSwitcher) SaveCurrentAccount(ctx context.Context) error {
	sess := a.sessions.CurrentSession()
	if sess == nil {
		return ErrNotAuthenticated
	}

	access, err := a.store.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	refresh, err := a.store.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}
	if access == "" || refresh == "" {
		return ErrNotAuthenticated
	}

	rec := securestore.AccountRecord{
		UserID:       sess.UserID,
		ProfileID:    sess.ProfileID,
		EntityID:     sess.EntityID,
		DisplayName:  sess.User().DisplayName,
		Email:        sess.Email,
		FirstName:    sess.FirstName,
		LastName:     sess.LastName,
		AccessToken:  access,
		RefreshToken: refresh,
		SavedAt:      a.now().Unix(),
	}
	if err := a.store.SaveAccount(ctx, rec, a.cfg.MaxAccounts); err != nil {
		if errors.Is(err, securestore.ErrAccountLimit) {
			a.metrics.Inc(metrics.MetricAccountLimitHit)
			return ErrMaxAccountsExceeded
		}
		return fmt.Errorf("save account: %w", err)
	}

	a.metrics.Inc(metrics.MetricAccountSaved)
	a.recordAudit(auditAccountSaved, sess.UserID, sess.ProfileID, true, "")
	return nil
}

// SwitchToAccount performs a cold switch into a remembered account. The
// target's stored token pair becomes active and is revalidated against
// the backend. If validation fails the previous pair is restored and
// the current session stays intact.
func (a *AccountSwitcher) SwitchToAccount(ctx context.Context, userID string) (*User, error) {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	if !a.state.CanPerformAuthOperation() {
		a.metrics.Inc(metrics.MetricAuthOperationRejected)
		return nil, ErrAuthOperationInFlight
	}

	rec, err := a.store.Account(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if rec == nil {
		return nil, ErrAccountNotFound
	}

	// Rollback point: the active pair before the swap. May be empty when
	// switching from a logged-out state.
	prevAccess, err := a.store.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}
	prevRefresh, err := a.store.RefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}

	a.state.Transition(AuthEventRefreshStart, TransitionPayload{})

	if err := a.store.SetTokenPair(ctx, rec.AccessToken, rec.RefreshToken); err != nil {
		a.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		return nil, fmt.Errorf("activate account tokens: %w", err)
	}

	sess, err := a.client.CheckSession(ctx, rec.AccessToken)
	if err != nil {
		a.rollbackTokens(ctx, prevAccess, prevRefresh)
		a.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		a.recordAudit(auditAccountSwitched, userID, rec.ProfileID, false, err.Error())

		if be, ok := backend.AsError(err); ok && be.AuthFailure() {
			// The stored pair is dead; forget it so the UI offers a fresh
			// sign-in for this account instead of failing again.
			if rmErr := a.store.RemoveAccount(ctx, userID); rmErr != nil {
				a.log.Warn("removing stale account failed", zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("validate account session: %w", err)
	}

	data := sessionFromBackend(*sess, a.now())
	a.sessions.replaceSession(data)
	user := data.User()
	a.state.Transition(AuthEventRefreshSuccess, TransitionPayload{User: user})

	if a.cache != nil {
		if err := a.cache.ClearAllCachedData(ctx); err != nil {
			a.log.Warn("cache clear after account switch failed", zap.Error(err))
		}
	}
	if err := a.store.SetLastActiveProfile(ctx, data.ProfileID); err != nil {
		a.log.Warn("storing last active profile failed", zap.Error(err))
	}

	a.metrics.Inc(metrics.MetricAccountSwitched)
	a.recordAudit(auditAccountSwitched, data.UserID, data.ProfileID, true, "")
	return user, nil
}

// RemoveAccount forgets a remembered account and its PIN association.
// Removing an unknown account is a no-op.
func (a *AccountSwitcher) RemoveAccount(ctx context.Context, userID string) error {
	rec, err := a.store.Account(ctx, userID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	if err := a.store.RemoveAccount(ctx, userID); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	if rec != nil {
		if err := a.store.ClearProfilePinData(ctx, rec.ProfileID); err != nil {
			a.log.Warn("clearing pin association failed", zap.Error(err))
		}
		a.metrics.Inc(metrics.MetricAccountRemoved)
		a.recordAudit(auditAccountRemoved, userID, rec.ProfileID, true, "")
	}
	return nil
}

func (a *AccountSwitcher) rollbackTokens(ctx context.Context, access, refresh string) {
	var err error
	if access == "" || refresh == "" {
		err = a.store.ClearTokens(ctx)
	} else {
		err = a.store.SetTokenPair(ctx, access, refresh)
	}
	if err != nil {
		a.log.Error("token rollback failed", zap.Error(err))
	}
}

func (a *AccountSwitcher) recordAudit(event, userID, profileID string, success bool, detail string) {
	a.audit.Emit(context.Background(), audit.Event{
		Timestamp: a.now(),
		EventType: event,
		UserID:    userID,
		ProfileID: profileID,
		AuthLevel: a.state.Level().String(),
		Success:   success,
		Error:     detail,
	})
}
