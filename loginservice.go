package swapcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/devicetoken"
	"github.com/kekpa/swap-frontend-sub003/internal/audit"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// LoginService implements the three login strategies. All three funnel
// into the same session adoption path; they differ only in how the
// credential is obtained and verified.
type LoginService struct {
	store     securestore.Store
	client    backend.Client
	sessions  *SessionManager
	state     *AuthStateMachine
	biometric BiometricGateway
	devTokens *devicetoken.Manager
	cfg       LoginConfig
	devCfg    DeviceTokenConfig
	accounts  AccountConfig
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func newLoginService(deps coreDeps) *LoginService {
	return &LoginService{
		store:     deps.store,
		client:    deps.client,
		sessions:  deps.sessions,
		state:     deps.state,
		biometric: deps.biometric,
		devTokens: deps.devTokens,
		cfg:       deps.cfg.Login,
		devCfg:    deps.cfg.DeviceToken,
		accounts:  deps.cfg.Accounts,
		audit:     deps.audit,
		metrics:   deps.metrics,
		log:       deps.log,
		now:       deps.now,
	}
}

// Login authenticates with an identifier (email, username or phone) and
// password. The backend resolves which profile the identifier belongs
// to. Expected failures come back in the result, not as an error.
func (s *LoginService) Login(ctx context.Context, identifier, password string) (LoginResult, error) {
	if identifier == "" || password == "" {
		return failure(CodeInvalidCredentials, "identifier and password are required"), nil
	}
	if !s.state.CanPerformAuthOperation() {
		s.metrics.Inc(metrics.MetricAuthOperationRejected)
		return failure(CodeOperationInFlight, "another sign-in is already running"), nil
	}

	s.state.Transition(AuthEventRefreshStart, TransitionPayload{})

	resp, err := s.client.Login(ctx, identifier, password)
	if err != nil {
		s.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		s.metrics.Inc(metrics.MetricLoginFailure)
		s.recordAudit(auditLogin, "", "", false, err.Error())
		return loginFailureFromBackend(err)
	}

	user, err := s.finishLogin(ctx, resp, identifier)
	if err != nil {
		s.metrics.Inc(metrics.MetricLoginFailure)
		return LoginResult{}, err
	}

	s.metrics.Inc(metrics.MetricLoginSuccess)
	s.recordAudit(auditLogin, resp.Session.UserID, resp.Session.ProfileID, true, "")
	return LoginResult{Success: true, User: user}, nil
}

// LoginWithPIN authenticates a returning user via the stored PIN
// association. profileID selects which remembered profile to sign into;
// empty means the last active one. A missing association is the
// NO_PIN_USER outcome and mutates no auth state at all.
func (s *LoginService) LoginWithPIN(ctx context.Context, profileID, pin string) (LoginResult, error) {
	if !validPIN(pin, s.cfg.PINLength) {
		return failure(CodeInvalidCredentials, "malformed pin"), nil
	}
	if !s.state.CanPerformAuthOperation() {
		s.metrics.Inc(metrics.MetricAuthOperationRejected)
		return failure(CodeOperationInFlight, "another sign-in is already running"), nil
	}

	if profileID == "" {
		last, err := s.store.LastActiveProfileID(ctx)
		if err != nil {
			return LoginResult{}, fmt.Errorf("read last active profile: %w", err)
		}
		profileID = last
	}

	var pinData *securestore.PinData
	if profileID != "" {
		var err error
		pinData, err = s.store.ProfilePinData(ctx, profileID)
		if err != nil {
			return LoginResult{}, fmt.Errorf("read pin association: %w", err)
		}
	}
	if pinData == nil {
		s.metrics.Inc(metrics.MetricPINLoginNoAssociation)
		s.recordAudit(auditPINLogin, "", profileID, false, "no pin association")
		return failure(CodeNoPINUser, "PIN not set up for this account"), nil
	}

	s.state.Transition(AuthEventRefreshStart, TransitionPayload{})

	resp, err := s.client.PinLogin(ctx, pinData.Identifier, pin, pinData.ProfileID)
	if err != nil {
		s.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		s.metrics.Inc(metrics.MetricPINLoginFailure)
		s.recordAudit(auditPINLogin, pinData.UserID, pinData.ProfileID, false, err.Error())
		return loginFailureFromBackend(err)
	}

	user, err := s.finishLogin(ctx, resp, pinData.Identifier)
	if err != nil {
		s.metrics.Inc(metrics.MetricPINLoginFailure)
		return LoginResult{}, err
	}

	s.metrics.Inc(metrics.MetricPINLoginSuccess)
	s.recordAudit(auditPINLogin, resp.Session.UserID, resp.Session.ProfileID, true, "")
	return LoginResult{Success: true, User: user}, nil
}

// LoginWithBiometric authenticates via the device biometric prompt plus
// the stored device assertion token. When hardware is missing, nothing
// is enrolled, or biometric sign-in was never enabled, it reports
// unavailable without ever showing a prompt.
func (s *LoginService) LoginWithBiometric(ctx context.Context) (LoginResult, error) {
	if s.biometric == nil || !s.biometric.HasHardware() || !s.biometric.IsEnrolled() {
		return failure(CodeBiometricUnavailable, "biometric sign-in is not available"), nil
	}

	token, err := s.store.DeviceToken(ctx)
	if err != nil {
		return LoginResult{}, fmt.Errorf("read device token: %w", err)
	}
	if token == "" {
		return failure(CodeBiometricUnavailable, "biometric sign-in has not been set up"), nil
	}
	if s.devTokens != nil {
		if _, err := s.devTokens.Parse(token); err != nil {
			// Stale or foreign assertion. Drop it so the UI re-offers setup.
			if clearErr := s.store.ClearDeviceToken(ctx); clearErr != nil {
				s.log.Warn("clearing stale device token failed", zap.Error(clearErr))
			}
			return failure(CodeBiometricUnavailable, "biometric sign-in needs to be set up again"), nil
		}
	}

	if !s.state.CanPerformAuthOperation() {
		s.metrics.Inc(metrics.MetricAuthOperationRejected)
		return failure(CodeOperationInFlight, "another sign-in is already running"), nil
	}

	prompt := s.biometric.Authenticate(ctx, s.cfg.BiometricPrompt)
	if prompt.Cancelled {
		s.metrics.Inc(metrics.MetricBiometricCancelled)
		return failure(CodeBiometricCancelled, ""), nil
	}
	if !prompt.Success {
		s.metrics.Inc(metrics.MetricBiometricLoginFailure)
		s.recordAudit(auditBiometricLogin, "", "", false, "prompt rejected")
		return failure(CodeBiometricFailed, "biometric authentication failed"), nil
	}

	s.state.Transition(AuthEventRefreshStart, TransitionPayload{})

	resp, err := s.client.BiometricLogin(ctx, token)
	if err != nil {
		s.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		s.metrics.Inc(metrics.MetricBiometricLoginFailure)
		s.recordAudit(auditBiometricLogin, "", "", false, err.Error())
		return loginFailureFromBackend(err)
	}

	user, err := s.finishLogin(ctx, resp, "")
	if err != nil {
		s.metrics.Inc(metrics.MetricBiometricLoginFailure)
		return LoginResult{}, err
	}

	s.metrics.Inc(metrics.MetricBiometricLoginSuccess)
	s.recordAudit(auditBiometricLogin, resp.Session.UserID, resp.Session.ProfileID, true, "")
	return LoginResult{Success: true, User: user}, nil
}

// EnableBiometricLogin mints a device assertion for the active session
// and persists it. Requires an authenticated session and a configured
// signing key.
func (s *LoginService) EnableBiometricLogin(ctx context.Context) error {
	if s.devTokens == nil {
		return ErrBiometricUnavailable
	}
	sess := s.sessions.CurrentSession()
	if sess == nil {
		return ErrNotAuthenticated
	}

	token, err := s.devTokens.Issue(sess.UserID, sess.ProfileID, s.devCfg.DeviceID)
	if err != nil {
		return fmt.Errorf("issue device token: %w", err)
	}
	if err := s.store.SetDeviceToken(ctx, token); err != nil {
		return fmt.Errorf("store device token: %w", err)
	}
	return nil
}

// DisableBiometricLogin removes the stored device assertion. Idempotent.
func (s *LoginService) DisableBiometricLogin(ctx context.Context) error {
	return s.store.ClearDeviceToken(ctx)
}

// finishLogin commits a successful login response: adopts the session
// and tokens, remembers the account, refreshes the PIN association and
// the last-active profile. pinIdentifier is empty when the strategy has
// no identifier to associate.
func (s *LoginService) finishLogin(ctx context.Context, resp *backend.LoginResponse, pinIdentifier string) (*User, error) {
	user, err := s.sessions.adoptSession(ctx, resp.Session, resp.AccessToken, resp.RefreshToken)
	if err != nil {
		s.state.Transition(AuthEventRefreshFailure, TransitionPayload{})
		return nil, err
	}

	rec := securestore.AccountRecord{
		UserID:       resp.Session.UserID,
		ProfileID:    resp.Session.ProfileID,
		EntityID:     resp.Session.EntityID,
		DisplayName:  user.DisplayName,
		Email:        resp.Session.Email,
		FirstName:    resp.Session.FirstName,
		LastName:     resp.Session.LastName,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SavedAt:      s.now().Unix(),
	}
	if err := s.store.SaveAccount(ctx, rec, s.accounts.MaxAccounts); err != nil {
		if errors.Is(err, securestore.ErrAccountLimit) {
			// The session itself is valid; only the remembered list is full.
			s.metrics.Inc(metrics.MetricAccountLimitHit)
			s.log.Warn("account not remembered, device limit reached",
				zap.String("user_id", resp.Session.UserID))
		} else {
			s.log.Warn("remembering account failed", zap.Error(err))
		}
	} else {
		s.metrics.Inc(metrics.MetricAccountSaved)
	}

	if pinIdentifier != "" {
		pd := securestore.PinData{
			Identifier: pinIdentifier,
			UserID:     resp.Session.UserID,
			ProfileID:  resp.Session.ProfileID,
		}
		if err := s.store.StoreProfilePinData(ctx, resp.Session.ProfileID, pd); err != nil {
			s.log.Warn("storing pin association failed", zap.Error(err))
		}
	}
	if err := s.store.SetLastActiveProfile(ctx, resp.Session.ProfileID); err != nil {
		s.log.Warn("storing last active profile failed", zap.Error(err))
	}

	return user, nil
}

func (s *LoginService) recordAudit(event, userID, profileID string, success bool, detail string) {
	s.audit.Emit(context.Background(), audit.Event{
		Timestamp: s.now(),
		EventType: event,
		UserID:    userID,
		ProfileID: profileID,
		AuthLevel: s.state.Level().String(),
		Success:   success,
		Error:     detail,
	})
}

func failure(code, message string) LoginResult {
	return LoginResult{Success: false, Code: code, Message: message}
}

// loginFailureFromBackend maps expected backend rejections into result
// codes. Anything unexpected stays an error.
func loginFailureFromBackend(err error) (LoginResult, error) {
	be, ok := backend.AsError(err)
	if !ok {
		return LoginResult{}, err
	}
	switch {
	case be.Code == backend.CodeInvalidCredentials:
		return failure(CodeInvalidCredentials, "identifier or password is incorrect"), nil
	case be.Code == backend.CodeRateLimited:
		return failure(CodeRateLimited, "too many attempts, try again later"), nil
	case be.Code == backend.CodePinNotConfigured:
		return failure(CodeNoPINUser, "PIN not set up for this account"), nil
	case be.Code == backend.CodeDeviceNotTrusted:
		return failure(CodeBiometricUnavailable, "this device is no longer trusted"), nil
	case be.Transient():
		return failure(CodeNetworkError, "connection problem, try again"), nil
	case be.AuthFailure():
		return failure(CodeInvalidCredentials, "sign-in was rejected"), nil
	}
	return LoginResult{}, err
}

func validPIN(pin string, length int) bool {
	if len(pin) != length {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
