package swapcore

import (
	"sync"

	"github.com/google/uuid"
)

// LoadingOrchestrator aggregates named in-flight operations into one
// derived readiness state. The UI renders from LoadingState snapshots;
// it never inspects individual operations. State is always recomputed
// from the operation set and the open auth transition, never patched.
type LoadingOrchestrator struct {
	// authActive reports an open auth transition. The UI gate stays
	// closed while one is running, even with no registered operations.
	authActive func() bool

	mu          sync.Mutex
	ops         map[string]OperationDescriptor
	order       []string
	awaitingAck bool
	listeners   map[string]func(LoadingState)
}

func newLoadingOrchestrator(authActive func() bool) *LoadingOrchestrator {
	return &LoadingOrchestrator{
		authActive: authActive,
		ops:        make(map[string]OperationDescriptor),
		listeners:  make(map[string]func(LoadingState)),
	}
}

// BeginOperation registers an in-flight operation and returns its id.
func (l *LoadingOrchestrator) BeginOperation(opType OperationType, description string) string {
	l.mu.Lock()
	id := uuid.NewString()
	l.ops[id] = OperationDescriptor{ID: id, Type: opType, Description: description}
	l.order = append(l.order, id)
	l.awaitingAck = false
	l.notifyLocked()
	return id
}

// EndOperation completes an operation. Ending an unknown id is a no-op.
// When the last operation ends, the orchestrator holds the UI gate
// closed until the first paint is acknowledged.
func (l *LoadingOrchestrator) EndOperation(id string) {
	l.mu.Lock()
	if _, ok := l.ops[id]; !ok {
		l.mu.Unlock()
		return
	}
	delete(l.ops, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	if len(l.ops) == 0 {
		l.awaitingAck = true
	}
	l.notifyLocked()
}

// AcknowledgeFirstPaint reports that the UI has rendered the
// post-transition frame. Listeners see one PhaseTransitionComplete
// snapshot, after which the orchestrator returns to idle.
func (l *LoadingOrchestrator) AcknowledgeFirstPaint() {
	l.mu.Lock()
	if !l.awaitingAck {
		l.mu.Unlock()
		return
	}
	l.awaitingAck = false

	complete := l.stateLocked()
	complete.Phase = PhaseTransitionComplete
	listeners := l.listenersLocked()
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(complete)
	}
}

// OnStateChange registers a listener for recomputed snapshots and
// returns its unsubscribe function.
func (l *LoadingOrchestrator) OnStateChange(fn func(LoadingState)) func() {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	id := uuid.NewString()
	l.listeners[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// State returns the current derived snapshot.
func (l *LoadingOrchestrator) State() LoadingState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateLocked()
}

// notifyLocked recomputes the snapshot and releases the lock before
// invoking listeners.
func (l *LoadingOrchestrator) notifyLocked() {
	state := l.stateLocked()
	listeners := l.listenersLocked()
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (l *LoadingOrchestrator) listenersLocked() []func(LoadingState) {
	out := make([]func(LoadingState), 0, len(l.listeners))
	for _, fn := range l.listeners {
		out = append(out, fn)
	}
	return out
}

func (l *LoadingOrchestrator) stateLocked() LoadingState {
	active := make([]OperationDescriptor, 0, len(l.ops))
	for _, id := range l.order {
		active = append(active, l.ops[id])
	}
	authOpen := l.authActive != nil && l.authActive()

	state := LoadingState{
		IsLoading:        len(active) > 0 || l.awaitingAck || authOpen,
		CanShowUI:        len(active) == 0 && !l.awaitingAck && !authOpen,
		Phase:            l.phaseLocked(active, authOpen),
		ActiveOperations: active,
	}
	if primary := primaryOperation(active); primary != nil {
		cp := *primary
		state.PrimaryOperation = &cp
	}
	return state
}

// phaseLocked derives the coarse phase: auth work dominates data
// loading, which dominates navigation. An empty set still awaiting the
// first-paint ack reads as UI preparation.
func (l *LoadingOrchestrator) phaseLocked(active []OperationDescriptor, authOpen bool) TransitionPhase {
	if authOpen {
		return PhaseAuthCompleting
	}
	var hasData, hasNav bool
	for _, op := range active {
		switch op.Type {
		case OperationAuth:
			return PhaseAuthCompleting
		case OperationDataLoading:
			hasData = true
		case OperationNavigation:
			hasNav = true
		}
	}
	switch {
	case hasData:
		return PhaseDataLoading
	case hasNav:
		return PhaseUIPreparing
	case l.awaitingAck:
		return PhaseUIPreparing
	default:
		return PhaseIdle
	}
}

// primaryOperation picks the operation the UI should describe: the
// oldest auth operation, else the oldest of any type.
func primaryOperation(active []OperationDescriptor) *OperationDescriptor {
	if len(active) == 0 {
		return nil
	}
	for i := range active {
		if active[i].Type == OperationAuth {
			return &active[i]
		}
	}
	return &active[0]
}
