package swapcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// SessionManager owns the canonical SessionData and the token pair in
// the secure store. Every other service reads session state through it;
// nothing else writes tokens.
type SessionManager struct {
	store   securestore.Store
	client  backend.Client
	state   *AuthStateMachine
	cache   CacheInvalidator
	audit   *audit.Dispatcher
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	sessionMu sync.Mutex
	session   *SessionData
}

func newSessionManager(deps coreDeps) *SessionManager {
	return &SessionManager{
		store:   deps.store,
		client:  deps.client,
		state:   deps.state,
		cache:   deps.cache,
		audit:   deps.audit,
		metrics: deps.metrics,
		log:     deps.log,
		now:     deps.now,
	}
}

// ValidateAndRestoreSession is the app-launch session check. An absent
// access token is the expected first-launch outcome: Valid=false with
// Err wrapping ErrNoAccessToken, no alert, no retry. A present token is
// validated against the backend; an auth rejection wipes local session
// state, a transient failure leaves it untouched.
func (m *SessionManager) ValidateAndRestoreSession(ctx context.Context) SessionCheckResult {
	if !m.state.CanPerformAuthOperation() {
		m.metrics.Inc(metrics.MetricAuthOperationRejected)
		return SessionCheckResult{Valid: false, Err: ErrAuthOperationInFlight}
	}

	m.state.Transition(AuthEventRefreshStart, TransitionPayload{})
	started := m.now()

	token, err := m.store.AccessToken(ctx)
	if err != nil {
		m.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		m.metrics.Inc(metrics.MetricSessionCheckFailure)
		return SessionCheckResult{Valid: false, Err: fmt.Errorf("read access token: %w", err)}
	}
	if token == "" {
		m.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		m.metrics.Inc(metrics.MetricSessionCheckNoToken)
		m.recordAudit(auditSessionCheck, "", "", true, "no stored token")
		return SessionCheckResult{Valid: false, Err: fmt.Errorf("session restore: %w", ErrNoAccessToken)}
	}

	sess, err := m.client.CheckSession(ctx, token)
	if err != nil {
		return m.failSessionCheck(ctx, err)
	}

	data := sessionFromBackend(*sess, m.now())
	user := data.User()

	m.sessionMu.Lock()
	m.session = data
	m.sessionMu.Unlock()

	m.state.Transition(AuthEventRefreshSuccess, TransitionPayload{User: user})
	m.metrics.Inc(metrics.MetricSessionCheckSuccess)
	m.metrics.Observe(metrics.MetricSessionCheckLatency, m.now().Sub(started))
	m.recordAudit(auditSessionCheck, data.UserID, data.ProfileID, true, "")

	return SessionCheckResult{Valid: true, User: user}
}

func (m *SessionManager) failSessionCheck(ctx context.Context, cause error) SessionCheckResult {
	m.metrics.Inc(metrics.MetricSessionCheckFailure)

	if be, ok := backend.AsError(cause); ok && be.AuthFailure() {
		// The stored token is dead. Wipe session state so the next launch
		// takes the clean unauthenticated path.
		if err := m.store.ClearTokens(ctx); err != nil {
			m.log.Warn("clearing rejected tokens failed", zap.Error(err))
		}
		m.sessionMu.Lock()
		m.session = nil
		m.sessionMu.Unlock()
		m.state.Transition(AuthEventRefreshFailure, TransitionPayload{Demote: true})
		m.recordAudit(auditSessionCheck, "", "", false, be.Code)
		return SessionCheckResult{Valid: false, Err: cause}
	}

	m.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
	m.recordAudit(auditSessionCheck, "", "", false, cause.Error())
	return SessionCheckResult{Valid: false, Err: cause}
}

// adoptSession commits a fresh login: stores the token pair atomically,
// replaces the canonical session and raises the auth level. Called by
// LoginService and AccountSwitcher only.
func (m *SessionManager) adoptSession(ctx context.Context, sess backend.Session, accessToken, refreshToken string) (*User, error) {
	if err := m.store.SetTokenPair(ctx, accessToken, refreshToken); err != nil {
		return nil, fmt.Errorf("store token pair: %w", err)
	}

	data := sessionFromBackend(sess, m.now())
	user := data.User()

	m.sessionMu.Lock()
	m.session = data
	m.sessionMu.Unlock()

	m.state.Transition(AuthEventRefreshSuccess, TransitionPayload{User: user})
	return user, nil
}

// replaceSession swaps the canonical session without touching tokens.
// Used by the profile-switch orchestrator for its optimistic apply and
// rollback.
func (m *SessionManager) replaceSession(data *SessionData) {
	m.sessionMu.Lock()
	m.session = data
	m.sessionMu.Unlock()
}

// ClearSession is the explicit logout. Idempotent: calling it without a
// session is a no-op on every sub-step. Remembered accounts and the PIN
// association survive; tokens, wallet unlock and caches do not.
func (m *SessionManager) ClearSession(ctx context.Context) error {
	m.sessionMu.Lock()
	prev := m.session
	m.session = nil
	m.sessionMu.Unlock()

	if token, err := m.store.AccessToken(ctx); err == nil && token != "" {
		if err := m.client.RevokeSession(ctx, token); err != nil {
			m.log.Warn("session revoke failed", zap.Error(err))
		}
	}

	var firstErr error
	if err := m.store.ClearTokens(ctx); err != nil {
		firstErr = fmt.Errorf("clear tokens: %w", err)
	}
	if err := m.store.ClearWalletUnlock(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("clear wallet unlock: %w", err)
	}
	if m.cache != nil {
		if err := m.cache.ClearAllCachedData(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("clear caches: %w", err)
		}
	}

	m.state.Transition(AuthEventLogout, TransitionPayload{})
	m.metrics.Inc(metrics.MetricLogout)
	if prev != nil {
		m.recordAudit(auditLogout, prev.UserID, prev.ProfileID, firstErr == nil, "")
	}
	return firstErr
}

// EmergencyCleanup tears down all local auth state without any backend
// call. Best effort: every step runs even when earlier ones fail, and
// the method never returns an error.
func (m *SessionManager) EmergencyCleanup(ctx context.Context) {
	m.sessionMu.Lock()
	m.session = nil
	m.sessionMu.Unlock()

	if err := m.store.Wipe(ctx); err != nil {
		m.log.Error("emergency store wipe failed", zap.Error(err))
	}
	if m.cache != nil {
		if err := m.cache.ClearAllCachedData(ctx); err != nil {
			m.log.Error("emergency cache clear failed", zap.Error(err))
		}
	}
	m.state.Transition(AuthEventLogout, TransitionPayload{})
	m.recordAudit(auditEmergencyCleanup, "", "", true, "")
}

// CurrentSession returns a copy of the canonical session, or nil when
// unauthenticated.
func (m *SessionManager) CurrentSession() *SessionData {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

// CurrentUser returns the UI projection of the canonical session.
func (m *SessionManager) CurrentUser() *User {
	return m.CurrentSession().User()
}

func (m *SessionManager) recordAudit(event, userID, profileID string, success bool, detail string) {
	m.audit.Emit(context.Background(), audit.Event{
		Timestamp: m.now(),
		EventType: event,
		UserID:    userID,
		ProfileID: profileID,
		AuthLevel: m.state.Level().String(),
		Success:   success,
		Error:     detail,
	})
}

func sessionFromBackend(s backend.Session, validatedAt time.Time) *SessionData {
	return &SessionData{
		UserID:        s.UserID,
		ProfileID:     s.ProfileID,
		EntityID:      s.EntityID,
		Email:         s.Email,
		Username:      s.Username,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		BusinessName:  s.BusinessName,
		ProfileType:   ProfileType(s.ProfileType),
		SessionID:     s.SessionID,
		CreatedAt:     time.Unix(s.CreatedAt, 0),
		LastValidated: validatedAt,
	}
}
