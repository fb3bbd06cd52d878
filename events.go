package swapcore

import (
	"sync"

	"github.com/google/uuid"
)

// EventType names a bus topic.
type EventType string

const (
	// EventSessionExpired is emitted by the network layer when a refresh
	// fails mid-session. AppLockService reacts with an immediate lock
	// rather than a full logout, preserving the user's place in the app.
	EventSessionExpired EventType = "session_expired"
	// EventAppLocked is emitted after AppLockService forces a lock.
	EventAppLocked EventType = "app_locked"
	// EventAppUnlocked is emitted after an explicit unlock.
	EventAppUnlocked EventType = "app_unlocked"
	// EventAuthLevelChanged is emitted after each committed auth transition.
	EventAuthLevelChanged EventType = "auth_level_changed"
	// EventProfileSwitched is emitted once a warm profile switch commits.
	EventProfileSwitched EventType = "profile_switched"
)

// Event is one bus notification.
type Event struct {
	Type   EventType
	Reason string
	Level  AuthLevel
}

// Bus is a minimal synchronous pub/sub decoupling transport-level
// signals from the orchestration services. Handlers run on the emitting
// goroutine; they must not block.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventType]map[string]func(Event)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType]map[string]func(Event))}
}

// On registers a handler and returns its unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) On(t EventType, handler func(Event)) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[t] == nil {
		b.handlers[t] = make(map[string]func(Event))
	}
	id := uuid.NewString()
	b.handlers[t][id] = handler

	return func() { b.off(t, id) }
}

func (b *Bus) off(t EventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[t], id)
}

// Emit delivers the event to every registered handler. Handlers are
// snapshotted first so unsubscribing from inside a handler is safe.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	registered := b.handlers[event.Type]
	snapshot := make([]func(Event), 0, len(registered))
	for _, h := range registered {
		snapshot = append(snapshot, h)
	}
	b.mu.Unlock()

	for _, h := range snapshot {
		h(event)
	}
}
