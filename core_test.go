package swapcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kekpa/swap-frontend-sub003/backend"
	"github.com/kekpa/swap-frontend-sub003/securestore"
)

// ---- shared test fakes ----

type fakeBackend struct {
	checkSession      func(ctx context.Context, accessToken string) (*backend.Session, error)
	login             func(ctx context.Context, identifier, password string) (*backend.LoginResponse, error)
	pinLogin          func(ctx context.Context, identifier, pin, profileID string) (*backend.LoginResponse, error)
	biometricLogin    func(ctx context.Context, deviceToken string) (*backend.LoginResponse, error)
	switchProfile     func(ctx context.Context, accessToken, targetProfileID string) (*backend.LoginResponse, error)
	availableProfiles func(ctx context.Context, accessToken string) ([]backend.Profile, error)
	revokeSession     func(ctx context.Context, accessToken string) error
}

var errUnexpectedCall = errors.New("unexpected backend call")

func (f *fakeBackend) CheckSession(ctx context.Context, accessToken string) (*backend.Session, error) {
	if f.checkSession == nil {
		return nil, errUnexpectedCall
	}
	return f.checkSession(ctx, accessToken)
}

func (f *fakeBackend) Login(ctx context.Context, identifier, password string) (*backend.LoginResponse, error) {
	if f.login == nil {
		return nil, errUnexpectedCall
	}
	return f.login(ctx, identifier, password)
}

func (f *fakeBackend) PinLogin(ctx context.Context, identifier, pin, profileID string) (*backend.LoginResponse, error) {
	if f.pinLogin == nil {
		return nil, errUnexpectedCall
	}
	return f.pinLogin(ctx, identifier, pin, profileID)
}

func (f *fakeBackend) BiometricLogin(ctx context.Context, deviceToken string) (*backend.LoginResponse, error) {
	if f.biometricLogin == nil {
		return nil, errUnexpectedCall
	}
	return f.biometricLogin(ctx, deviceToken)
}

func (f *fakeBackend) SwitchProfile(ctx context.Context, accessToken, targetProfileID string) (*backend.LoginResponse, error) {
	if f.switchProfile == nil {
		return nil, errUnexpectedCall
	}
	return f.switchProfile(ctx, accessToken, targetProfileID)
}

func (f *fakeBackend) AvailableProfiles(ctx context.Context, accessToken string) ([]backend.Profile, error) {
	if f.availableProfiles == nil {
		return nil, errUnexpectedCall
	}
	return f.availableProfiles(ctx, accessToken)
}

func (f *fakeBackend) RevokeSession(ctx context.Context, accessToken string) error {
	if f.revokeSession == nil {
		return nil
	}
	return f.revokeSession(ctx, accessToken)
}

type fakeBiometric struct {
	hardware bool
	enrolled bool
	result   BiometricResult
	prompts  int
}

func (f *fakeBiometric) HasHardware() bool { return f.hardware }
func (f *fakeBiometric) IsEnrolled() bool  { return f.enrolled }

func (f *fakeBiometric) Authenticate(context.Context, string) BiometricResult {
	f.prompts++
	return f.result
}

type fakeCache struct {
	mu      sync.Mutex
	cleared int
	err     error
}

func (f *fakeCache) ClearAllCachedData(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return f.err
}

func (f *fakeCache) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- harness ----

type testEnv struct {
	core      *Core
	store     *securestore.MemoryStore
	backend   *fakeBackend
	biometric *fakeBiometric
	cache     *fakeCache
	clock     *fakeClock
}

func newTestEnv(t *testing.T, mutate ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     securestore.NewMemoryStore(),
		backend:   &fakeBackend{},
		biometric: &fakeBiometric{hardware: true, enrolled: true, result: BiometricResult{Success: true}},
		cache:     &fakeCache{},
		clock:     newFakeClock(),
	}

	b := New().
		WithStore(env.store).
		WithBackend(env.backend).
		WithBiometricGateway(env.biometric).
		WithCacheInvalidator(env.cache).
		WithClock(env.clock.Now)
	for _, fn := range mutate {
		fn(b)
	}

	core, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(core.Close)

	env.core = core
	return env
}

func testSession(userID, profileID string) backend.Session {
	return backend.Session{
		UserID:      userID,
		ProfileID:   profileID,
		EntityID:    "entity-" + profileID,
		Email:       userID + "@example.com",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		ProfileType: "personal",
		SessionID:   "sess-" + userID,
		CreatedAt:   1748700000,
	}
}

func loginResponse(userID, profileID string) *backend.LoginResponse {
	return &backend.LoginResponse{
		Session:      testSession(userID, profileID),
		AccessToken:  "acc-" + userID + "-" + profileID,
		RefreshToken: "ref-" + userID + "-" + profileID,
	}
}

// signIn drives a password login through the public API so tests start
// from a realistic authenticated state.
func (env *testEnv) signIn(t *testing.T, userID, profileID string) {
	t.Helper()

	env.backend.login = func(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
		return loginResponse(userID, profileID), nil
	}
	res, err := env.core.Login().Login(context.Background(), userID+"@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("login not successful: %+v", res)
	}
}

func authFailure(code string) error {
	return &backend.Error{Code: code, Message: "rejected", HTTPStatus: 401}
}

func transientFailure() error {
	return &backend.Error{Code: backend.CodeNetwork, Message: "connection reset", HTTPStatus: 502}
}

func TestBuilderRequiresStore(t *testing.T) {
	if _, err := New().WithBackend(&fakeBackend{}).Build(); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestBuilderRejectsDoubleBuild(t *testing.T) {
	b := New().WithStore(securestore.NewMemoryStore()).WithBackend(&fakeBackend{})
	core, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer core.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Accounts.MaxAccounts = 0

	_, err := New().
		WithConfig(cfg).
		WithStore(securestore.NewMemoryStore()).
		WithBackend(&fakeBackend{}).
		Build()
	if err == nil {
		t.Fatal("expected config validation error")
	}
}
