package swapcore

import (
	"sync"

	"go.uber.org/zap"

	"github.com/kekpa/swap-frontend-sub003/internal/metrics"
)

// AuthEvent drives the auth state machine. The public event set is
// fixed; anything else is ignored and counted.
type AuthEvent string

const (
	// AuthEventRefreshStart marks the beginning of a session check, login
	// or token refresh. While in flight, further auth operations are rejected.
	AuthEventRefreshStart AuthEvent = "refresh_start"
	// AuthEventRefreshSuccess commits a validated session and moves the
	// level to at least LevelAuthenticated.
	AuthEventRefreshSuccess AuthEvent = "refresh_success"
	// AuthEventRefreshFailure clears the in-flight flag. The level only
	// drops when the payload demands it.
	AuthEventRefreshFailure AuthEvent = "refresh_failure"
	// AuthEventLogout resets the machine to LevelGuest.
	AuthEventLogout AuthEvent = "logout"
)

// Internal wallet-tier events. Reported in transition snapshots but not
// accepted by Transition; WalletSecurity drives these directly.
const (
	authEventWalletUnlock AuthEvent = "wallet_unlock"
	authEventWalletLock   AuthEvent = "wallet_lock"
)

// AuthTransition is the committed snapshot handed to subscribers after
// each state change.
type AuthTransition struct {
	Event    AuthEvent
	Previous AuthLevel
	Current  AuthLevel
	User     *User
}

// TransitionPayload carries the optional inputs of one event.
type TransitionPayload struct {
	User *User
	// Demote forces the level back to LevelGuest on refresh failure.
	// A transient network failure leaves the level untouched.
	Demote bool
}

// AuthStateMachine owns the authorization level and the serialization
// of auth operations. It never talks to the network or storage; the
// services around it do, then commit the outcome here.
type AuthStateMachine struct {
	mu         sync.Mutex
	level      AuthLevel
	inFlight   bool
	navigating bool
	user       *User

	subscribers map[string]func(AuthTransition)
	nextSubID   func() string

	log     *zap.Logger
	metrics *metrics.Metrics
	bus     *Bus
}

func newAuthStateMachine(log *zap.Logger, m *metrics.Metrics, bus *Bus, nextSubID func() string) *AuthStateMachine {
	return &AuthStateMachine{
		level:       LevelGuest,
		subscribers: make(map[string]func(AuthTransition)),
		nextSubID:   nextSubID,
		log:         log,
		metrics:     m,
		bus:         bus,
	}
}

// Level returns the current authorization level.
func (a *AuthStateMachine) Level() AuthLevel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.level
}

// CanPerformAuthOperation reports whether a new auth operation may
// start. False while a prior transition or a navigation is in flight.
func (a *AuthStateMachine) CanPerformAuthOperation() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.inFlight && !a.navigating
}

// operationInFlight reports an open auth transition. The loading
// orchestrator holds the UI gate closed while one is running.
func (a *AuthStateMachine) operationInFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

// SetNavigating marks a navigation transition in progress. Auth
// operations are rejected until it clears.
func (a *AuthStateMachine) SetNavigating(active bool) {
	a.mu.Lock()
	a.navigating = active
	a.mu.Unlock()
}

// Subscribe registers a listener for committed transitions and returns
// its unsubscribe function. Listeners run synchronously on the
// transitioning goroutine, after the lock is released.
func (a *AuthStateMachine) Subscribe(fn func(AuthTransition)) func() {
	if fn == nil {
		return func() {}
	}

	a.mu.Lock()
	id := a.nextSubID()
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

// Transition applies one event. Unknown events are logged and counted,
// never applied; the machine keeps its current state.
func (a *AuthStateMachine) Transition(event AuthEvent, payload TransitionPayload) {
	a.mu.Lock()

	prev := a.level
	switch event {
	case AuthEventRefreshStart:
		a.inFlight = true
	case AuthEventRefreshSuccess:
		a.inFlight = false
		if a.level < LevelAuthenticated {
			a.level = LevelAuthenticated
		}
		if payload.User != nil {
			a.user = payload.User
		}
	case AuthEventRefreshFailure:
		a.inFlight = false
		if payload.Demote {
			a.level = LevelGuest
			a.user = nil
		}
	case AuthEventLogout:
		a.inFlight = false
		a.level = LevelGuest
		a.user = nil
	default:
		a.mu.Unlock()
		a.metrics.Inc(metrics.MetricUnknownAuthEvent)
		a.log.Warn("ignoring unknown auth event", zap.String("event", string(event)))
		return
	}

	a.commitLocked(event, prev)
}

// setWalletUnlocked elevates to LevelWalletUnlocked. Only reachable
// from LevelAuthenticated; WalletSecurity enforces the gate before
// calling.
func (a *AuthStateMachine) setWalletUnlocked() bool {
	a.mu.Lock()
	if a.level != LevelAuthenticated {
		a.mu.Unlock()
		return false
	}
	prev := a.level
	a.level = LevelWalletUnlocked
	a.commitLocked(authEventWalletUnlock, prev)
	return true
}

// setWalletLocked drops LevelWalletUnlocked back to LevelAuthenticated.
// No-op at any other level.
func (a *AuthStateMachine) setWalletLocked() {
	a.mu.Lock()
	if a.level != LevelWalletUnlocked {
		a.mu.Unlock()
		return
	}
	prev := a.level
	a.level = LevelAuthenticated
	a.commitLocked(authEventWalletLock, prev)
}

// commitLocked finishes a transition: snapshots subscribers, releases
// the lock, then notifies. Callers must hold a.mu.
func (a *AuthStateMachine) commitLocked(event AuthEvent, prev AuthLevel) {
	cur := a.level
	user := a.user
	subs := make([]func(AuthTransition), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	if cur == prev && event == AuthEventRefreshStart {
		return
	}

	t := AuthTransition{Event: event, Previous: prev, Current: cur, User: user}
	for _, fn := range subs {
		fn(t)
	}
	if cur != prev {
		a.bus.Emit(Event{Type: EventAuthLevelChanged, Level: cur})
		a.log.Info("auth level changed",
			zap.String("from", prev.String()),
			zap.String("to", cur.String()),
			zap.String("event", string(event)),
		)
	}
}
