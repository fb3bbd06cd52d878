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

// SwitchState is the observable stage of one warm profile switch.
type SwitchState uint8

const (
	SwitchIdle SwitchState = iota
	SwitchValidating
	SwitchAuthenticating
	SwitchApplying
	SwitchConfirming
	SwitchCommitted
	SwitchAborted
)

func (s SwitchState) String() string {
	switch s {
	case SwitchIdle:
		return "idle"
	case SwitchValidating:
		return "validating"
	case SwitchAuthenticating:
		return "authenticating"
	case SwitchApplying:
		return "applying"
	case SwitchConfirming:
		return "confirming"
	case SwitchCommitted:
		return "committed"
	case SwitchAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// SwitchProgress receives stage notifications during a switch. Called
// synchronously on the switching goroutine.
type SwitchProgress func(state SwitchState, message string)

// SwitchOptions carries per-switch inputs. PIN is the fallback step-up
// credential when the biometric prompt is unavailable.
type SwitchOptions struct {
	PIN      string
	Progress SwitchProgress
}

// ProfileSwitchOrchestrator runs warm switches between profiles of the
// already signed-in user. The UI is updated optimistically from cached
// profile data; a failed backend confirmation rolls the session back to
// the pre-switch snapshot.
type ProfileSwitchOrchestrator struct {
	store     securestore.Store
	client    backend.Client
	sessions  *SessionManager
	state     *AuthStateMachine
	biometric BiometricGateway
	cache     CacheInvalidator
	bus       *Bus
	cfg       ProfileSwitchConfig
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	active *ProfileSwitchContext
}

func newProfileSwitchOrchestrator(deps coreDeps) *ProfileSwitchOrchestrator {
	return &ProfileSwitchOrchestrator{
		store:     deps.store,
		client:    deps.client,
		sessions:  deps.sessions,
		state:     deps.state,
		biometric: deps.biometric,
		cache:     deps.cache,
		bus:       deps.bus,
		cfg:       deps.cfg.ProfileSwitch,
		audit:     deps.audit,
		metrics:   deps.metrics,
		log:       deps.log,
		now:       deps.now,
	}
}

// Active returns a copy of the in-flight switch context, or nil.
func (o *ProfileSwitchOrchestrator) Active() *ProfileSwitchContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return nil
	}
	cp := *o.active
	return &cp
}

// SwitchProfile runs one warm switch to targetProfileID. Concurrent
// requests are rejected with ErrSwitchInProgress, never queued.
// Switching to the already active profile is a no-op.
func (o *ProfileSwitchOrchestrator) SwitchProfile(ctx context.Context, targetProfileID string, opts SwitchOptions) (*User, error) {
	o.mu.Lock()
	if o.active != nil {
		o.mu.Unlock()
		o.metrics.Inc(metrics.MetricAuthOperationRejected)
		return nil, ErrSwitchInProgress
	}

	// The session is read only after the slot is taken: an in-flight
	// switch has already written the optimistic target into it, and the
	// same-profile check must see the pre-switch state.
	sess := o.sessions.CurrentSession()
	if sess == nil {
		o.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	if sess.ProfileID == targetProfileID {
		o.mu.Unlock()
		return sess.User(), nil
	}

	swctx := &ProfileSwitchContext{
		TargetProfileID: targetProfileID,
		SourceUserID:    sess.UserID,
	}
	o.active = swctx
	o.mu.Unlock()

	o.metrics.Inc(metrics.MetricProfileSwitchStarted)
	user, err := o.run(ctx, sess, swctx, opts)

	o.mu.Lock()
	o.active = nil
	o.mu.Unlock()

	return user, err
}

func (o *ProfileSwitchOrchestrator) run(ctx context.Context, sess *SessionData, swctx *ProfileSwitchContext, opts SwitchOptions) (*User, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(SwitchState, string) {}
	}

	// -------- VALIDATE --------
	progress(SwitchValidating, "checking target profile")

	accessToken, err := o.store.AccessToken(ctx)
	if err != nil {
		return nil, o.abort(swctx, fmt.Errorf("read access token: %w", err))
	}
	if accessToken == "" {
		return nil, o.abort(swctx, ErrNotAuthenticated)
	}

	profiles, err := o.client.AvailableProfiles(ctx, accessToken)
	if err != nil {
		return nil, o.abort(swctx, fmt.Errorf("load available profiles: %w", err))
	}
	var target *backend.Profile
	for i := range profiles {
		if profiles[i].ProfileID == swctx.TargetProfileID {
			target = &profiles[i]
			break
		}
	}
	if target == nil {
		return nil, o.abort(swctx, ErrProfileNotFound)
	}
	swctx.RequireBiometric = o.cfg.RequireFreshAuth || target.RequireAuth

	// -------- STEP-UP AUTH --------
	if swctx.RequireBiometric {
		progress(SwitchAuthenticating, "confirming identity")
		if err := o.stepUp(ctx, swctx, opts.PIN); err != nil {
			return nil, o.abort(swctx, err)
		}
	}

	// -------- OPTIMISTIC APPLY --------
	progress(SwitchApplying, "switching profile")

	snapshot := o.sessions.CurrentSession()
	o.sessions.replaceSession(optimisticSession(snapshot, target, o.now()))

	// -------- CONFIRM --------
	progress(SwitchConfirming, "confirming with server")

	resp, err := o.client.SwitchProfile(ctx, accessToken, swctx.TargetProfileID)
	if err != nil {
		o.rollback(swctx, snapshot)
		return nil, o.abort(swctx, fmt.Errorf("confirm profile switch: %w", err))
	}
	if resp.Session.UserID != swctx.SourceUserID {
		// Security abort: the backend resolved the switch to a different
		// user. Tokens from the response are discarded untouched.
		o.rollback(swctx, snapshot)
		return nil, o.abort(swctx, ErrDifferentUser)
	}

	if err := o.store.SetTokenPair(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		o.rollback(swctx, snapshot)
		return nil, o.abort(swctx, fmt.Errorf("store switched tokens: %w", err))
	}

	// -------- COMMIT --------
	data := sessionFromBackend(resp.Session, o.now())
	o.sessions.replaceSession(data)

	if err := o.store.SetLastActiveProfile(ctx, data.ProfileID); err != nil {
		o.log.Warn("storing last active profile failed", zap.Error(err))
	}

	// Caches are cleared synchronously before the switch is reported
	// done, so no view can read data from the previous profile.
	if o.cache != nil {
		if err := o.cache.ClearAllCachedData(ctx); err != nil {
			o.log.Warn("cache clear after profile switch failed", zap.Error(err))
		}
	}

	user := data.User()
	progress(SwitchCommitted, "profile switch complete")
	o.metrics.Inc(metrics.MetricProfileSwitchCommitted)
	o.recordAudit(swctx, true, "")
	o.bus.Emit(Event{Type: EventProfileSwitched, Level: o.state.Level()})
	return user, nil
}

// stepUp verifies the user's identity before a sensitive switch. The
// biometric prompt is preferred; the PIN fallback re-verifies against
// the backend and additionally proves the identity still resolves to
// the user who started the switch.
func (o *ProfileSwitchOrchestrator) stepUp(ctx context.Context, swctx *ProfileSwitchContext, pin string) error {
	if o.biometric != nil && o.biometric.HasHardware() && o.biometric.IsEnrolled() {
		res := o.biometric.Authenticate(ctx, o.cfg.StepUpPrompt)
		if res.Cancelled {
			return ErrBiometricCancelled
		}
		if res.Success {
			return nil
		}
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrBiometricFailed, res.Err)
		}
		return ErrBiometricFailed
	}

	if pin == "" {
		return ErrBiometricUnavailable
	}

	sess := o.sessions.CurrentSession()
	if sess == nil {
		return ErrNotAuthenticated
	}
	pinData, err := o.store.ProfilePinData(ctx, sess.ProfileID)
	if err != nil {
		return fmt.Errorf("read pin association: %w", err)
	}
	if pinData == nil {
		return ErrNoPINUser
	}

	// Identity check only. The response tokens are dropped; the active
	// session keeps its own pair until the switch itself is confirmed.
	resp, err := o.client.PinLogin(ctx, pinData.Identifier, pin, pinData.ProfileID)
	if err != nil {
		return fmt.Errorf("pin verification: %w", err)
	}
	if resp.Session.UserID != swctx.SourceUserID {
		return ErrDifferentUser
	}
	return nil
}

func (o *ProfileSwitchOrchestrator) rollback(swctx *ProfileSwitchContext, snapshot *SessionData) {
	o.sessions.replaceSession(snapshot)
	o.metrics.Inc(metrics.MetricProfileSwitchRolledBack)
	o.log.Warn("profile switch rolled back",
		zap.String("target_profile", swctx.TargetProfileID))
}

func (o *ProfileSwitchOrchestrator) abort(swctx *ProfileSwitchContext, cause error) error {
	o.metrics.Inc(metrics.MetricProfileSwitchAborted)
	o.recordAudit(swctx, false, cause.Error())
	return cause
}

func (o *ProfileSwitchOrchestrator) recordAudit(swctx *ProfileSwitchContext, success bool, detail string) {
	o.audit.Emit(context.Background(), audit.Event{
		Timestamp: o.now(),
		EventType: auditProfileSwitch,
		UserID:    swctx.SourceUserID,
		ProfileID: swctx.TargetProfileID,
		AuthLevel: o.state.Level().String(),
		Success:   success,
		Error:     detail,
	})
}

// optimisticSession projects cached profile display data over the
// current session so the UI can render the target profile immediately.
func optimisticSession(current *SessionData, target *backend.Profile, at time.Time) *SessionData {
	opt := *current
	opt.ProfileID = target.ProfileID
	opt.EntityID = target.EntityID
	opt.ProfileType = ProfileType(target.ProfileType)
	opt.BusinessName = target.BusinessName
	if opt.ProfileType == ProfileBusiness && opt.BusinessName == "" {
		opt.BusinessName = target.DisplayName
	}
	opt.LastValidated = at
	return &opt
}
