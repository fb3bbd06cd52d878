package swapcore

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
)

func TestPasswordLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.backend.login = func(_ context.Context, identifier, password string) (*backend.LoginResponse, error) {
		if identifier != "ada@example.com" || password != "pw" {
			t.Fatalf("unexpected credentials %q %q", identifier, password)
		}
		return loginResponse("u1", "p1"), nil
	}

	res, err := env.core.Login().Login(ctx, "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.Success || res.User == nil || res.User.UserID != "u1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := env.core.Auth().Level(); got != LevelAuthenticated {
		t.Fatalf("level = %s, want authenticated", got)
	}

	// The login must leave everything a later PIN login and cold switch need.
	if token, _ := env.store.AccessToken(ctx); token != "acc-u1-p1" {
		t.Fatalf("access token = %q", token)
	}
	pin, _ := env.store.ProfilePinData(ctx, "p1")
	if pin == nil || pin.Identifier != "ada@example.com" || pin.UserID != "u1" {
		t.Fatalf("pin association = %+v", pin)
	}
	last, _ := env.store.LastActiveProfileID(ctx)
	if last != "p1" {
		t.Fatalf("last active profile = %q", last)
	}
	accounts, _ := env.store.Accounts(ctx)
	if len(accounts) != 1 {
		t.Fatalf("accounts = %+v", accounts)
	}
}

func TestPasswordLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	env.backend.login = func(context.Context, string, string) (*backend.LoginResponse, error) {
		return nil, authFailure(backend.CodeInvalidCredentials)
	}

	res, err := env.core.Login().Login(context.Background(), "ada@example.com", "wrong")
	if err != nil {
		t.Fatalf("expected result, got error %v", err)
	}
	if res.Success || res.Code != CodeInvalidCredentials {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := env.core.Auth().Level(); got != LevelGuest {
		t.Fatalf("level = %s, want guest", got)
	}
}

func TestPasswordLoginEmptyInput(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.core.Login().Login(context.Background(), "", "")
	if err != nil {
		t.Fatalf("expected result, got error %v", err)
	}
	if res.Success || res.Code != CodeInvalidCredentials {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestPINLoginWithoutAssociation(t *testing.T) {
	env := newTestEnv(t)

	var seen []AuthTransition
	env.core.Auth().Subscribe(func(tr AuthTransition) { seen = append(seen, tr) })

	res, err := env.core.Login().LoginWithPIN(context.Background(), "", "123456")
	if err != nil {
		t.Fatalf("expected result, got error %v", err)
	}
	if res.Success || res.Code != CodeNoPINUser {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Message != "PIN not set up for this account" {
		t.Fatalf("message = %q", res.Message)
	}
	// The missing-association path must not touch the state machine at all.
	if len(seen) != 0 {
		t.Fatalf("auth state mutated: %+v", seen)
	}
	if got := env.core.MetricsSnapshot().Counters[metrics.MetricPINLoginNoAssociation]; got != 1 {
		t.Fatalf("no-association counter = %d, want 1", got)
	}
}

func TestPINLoginSuccessUsesStoredAssociation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signIn(t, "u1", "p1")
	if err := env.core.Sessions().ClearSession(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	env.backend.pinLogin = func(_ context.Context, identifier, pin, profileID string) (*backend.LoginResponse, error) {
		if identifier != "u1@example.com" || pin != "123456" || profileID != "p1" {
			t.Fatalf("unexpected pin login %q %q %q", identifier, pin, profileID)
		}
		return loginResponse("u1", "p1"), nil
	}

	res, err := env.core.Login().LoginWithPIN(ctx, "", "123456")
	if err != nil {
		t.Fatalf("LoginWithPIN failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := env.core.Auth().Level(); got != LevelAuthenticated {
		t.Fatalf("level = %s, want authenticated", got)
	}
}

func TestPINLoginRejectsMalformedPIN(t *testing.T) {
	env := newTestEnv(t)

	for _, pin := range []string{"", "12345", "1234567", "12345a"} {
		res, err := env.core.Login().LoginWithPIN(context.Background(), "p1", pin)
		if err != nil {
			t.Fatalf("pin %q: unexpected error %v", pin, err)
		}
		if res.Success || res.Code != CodeInvalidCredentials {
			t.Fatalf("pin %q accepted: %+v", pin, res)
		}
	}
}

func TestBiometricLoginNotEnrolledNeverPrompts(t *testing.T) {
	env := newTestEnv(t)
	env.biometric.enrolled = false

	res, err := env.core.Login().LoginWithBiometric(context.Background())
	if err != nil {
		t.Fatalf("expected result, got error %v", err)
	}
	if res.Success || res.Code != CodeBiometricUnavailable {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.biometric.prompts != 0 {
		t.Fatalf("prompt shown %d times without enrollment", env.biometric.prompts)
	}
}

func TestBiometricLoginWithoutStoredTokenUnavailable(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.core.Login().LoginWithBiometric(context.Background())
	if err != nil {
		t.Fatalf("expected result, got error %v", err)
	}
	if res.Success || res.Code != CodeBiometricUnavailable {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.biometric.prompts != 0 {
		t.Fatalf("prompt shown %d times without a device token", env.biometric.prompts)
	}
}

func TestBiometricLoginCancelledIsExpected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.store.SetDeviceToken(ctx, "opaque-device-token"); err != nil {
		t.Fatalf("seed device token: %v", err)
	}
	env.biometric.result = BiometricResult{Cancelled: true}

	res, err := env.core.Login().LoginWithBiometric(ctx)
	if err != nil {
		t.Fatalf("cancel must not be an error, got %v", err)
	}
	if res.Success || res.Code != CodeBiometricCancelled {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := env.core.Auth().Level(); got != LevelGuest {
		t.Fatalf("level = %s, want guest", got)
	}
}

func TestBiometricLoginFullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if err := env.store.SetDeviceToken(ctx, "opaque-device-token"); err != nil {
		t.Fatalf("seed device token: %v", err)
	}
	env.backend.biometricLogin = func(_ context.Context, deviceToken string) (*backend.LoginResponse, error) {
		if deviceToken != "opaque-device-token" {
			t.Fatalf("unexpected device token %q", deviceToken)
		}
		return loginResponse("u1", "p1"), nil
	}

	res, err := env.core.Login().LoginWithBiometric(ctx)
	if err != nil {
		t.Fatalf("LoginWithBiometric failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if env.biometric.prompts != 1 {
		t.Fatalf("prompts = %d, want 1", env.biometric.prompts)
	}
	if got := env.core.Auth().Level(); got != LevelAuthenticated {
		t.Fatalf("level = %s, want authenticated", got)
	}
}

func TestEnableBiometricLoginIssuesSignedToken(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	cfg := defaultConfig()
	cfg.DeviceToken.PrivateKey = priv
	cfg.DeviceToken.PublicKey = pub
	cfg.DeviceToken.DeviceID = "device-1"

	env := newTestEnv(t, func(b *Builder) { b.WithConfig(cfg) })
	ctx := context.Background()

	if err := env.core.Login().EnableBiometricLogin(ctx); err != ErrNotAuthenticated {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}

	env.signIn(t, "u1", "p1")
	if err := env.core.Login().EnableBiometricLogin(ctx); err != nil {
		t.Fatalf("EnableBiometricLogin failed: %v", err)
	}

	token, err := env.store.DeviceToken(ctx)
	if err != nil || token == "" {
		t.Fatalf("device token not stored: %q %v", token, err)
	}

	// A stored valid token makes biometric login reach the backend.
	env.backend.biometricLogin = func(context.Context, string) (*backend.LoginResponse, error) {
		return loginResponse("u1", "p1"), nil
	}
	if err := env.core.Sessions().ClearSession(ctx); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	res, err := env.core.Login().LoginWithBiometric(ctx)
	if err != nil || !res.Success {
		t.Fatalf("biometric login after enable failed: %+v %v", res, err)
	}

	if err := env.core.Login().DisableBiometricLogin(ctx); err != nil {
		t.Fatalf("DisableBiometricLogin failed: %v", err)
	}
	token, _ = env.store.DeviceToken(ctx)
	if token != "" {
		t.Fatalf("device token not cleared: %q", token)
	}
}
