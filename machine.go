package crossroads

import (
	"fmt"
	"sync"
)

// WorkerEvent triggers a worker lifecycle transition
type WorkerEvent string

const (
	// EventStart moves an idle worker to running
	EventStart WorkerEvent = "start"
	// EventDrain ends a running worker whose input is exhausted
	EventDrain WorkerEvent = "drain"
	// EventHalt ends a running worker because the run was halted
	EventHalt WorkerEvent = "halt"
)

// GuardFunc decides whether a transition may fire
type GuardFunc func() bool

// ActionFunc runs while a transition fires. An error aborts the transition.
type ActionFunc func() error

// Transition represents a lifecycle transition
type Transition struct {
	Source WorkerState
	Target WorkerState
	Event  WorkerEvent
	Guard  GuardFunc
	Action ActionFunc
}

// NewTransition creates a new transition
func NewTransition(source, target WorkerState, event WorkerEvent) *Transition {
	return &Transition{
		Source: source,
		Target: target,
		Event:  event,
	}
}

// WithGuard adds a guard condition to the transition
func (t *Transition) WithGuard(guard GuardFunc) *Transition {
	t.Guard = guard
	return t
}

// WithAction adds an action to the transition
func (t *Transition) WithAction(action ActionFunc) *Transition {
	t.Action = action
	return t
}

// EventResult represents the result of handling an event
type EventResult struct {
	Processed       bool
	StateChanged    bool
	PreviousState   WorkerState
	CurrentState    WorkerState
	Error           error
	RejectionReason string
}

// Success returns true if the event was processed successfully
func (r *EventResult) Success() bool {
	return r.Processed && r.Error == nil
}

func rejected(state WorkerState, event WorkerEvent, reason string) *EventResult {
	return &EventResult{
		PreviousState:   state,
		CurrentState:    state,
		Error:           NewTransitionError(state, event, reason),
		RejectionReason: reason,
	}
}

// TransitionHook is called after the lifecycle moved from one state to another
type TransitionHook func(from, to WorkerState, event WorkerEvent)

// Lifecycle is a small event-driven state machine over WorkerState
type Lifecycle struct {
	current     WorkerState
	transitions map[WorkerState][]*Transition
	hooks       []TransitionHook
	mutex       sync.Mutex
}

// NewLifecycle creates a lifecycle resting in initial
func NewLifecycle(initial WorkerState, transitions ...*Transition) *Lifecycle {
	lc := &Lifecycle{
		current:     initial,
		transitions: make(map[WorkerState][]*Transition),
	}
	for _, t := range transitions {
		lc.transitions[t.Source] = append(lc.transitions[t.Source], t)
	}
	return lc
}

// OnTransition registers a hook called after every state change
func (lc *Lifecycle) OnTransition(hook TransitionHook) *Lifecycle {
	lc.hooks = append(lc.hooks, hook)
	return lc
}

// State returns the current state
func (lc *Lifecycle) State() WorkerState {
	lc.mutex.Lock()
	defer lc.mutex.Unlock()
	return lc.current
}

// HandleEvent fires the first transition out of the current state that
// matches event and whose guard passes. Hooks run after the lock is released.
func (lc *Lifecycle) HandleEvent(event WorkerEvent) *EventResult {
	lc.mutex.Lock()

	from := lc.current
	var match *Transition
	guardFailed := false
	for _, t := range lc.transitions[from] {
		if t.Event != event {
			continue
		}
		if t.Guard != nil {
			ok, err := safeEvaluateGuard(t.Guard)
			if err != nil {
				lc.mutex.Unlock()
				return rejected(from, event, err.Error())
			}
			if !ok {
				guardFailed = true
				continue
			}
		}
		match = t
		break
	}

	if match == nil {
		lc.mutex.Unlock()
		if guardFailed {
			return rejected(from, event, "guard rejected the transition")
		}
		return rejected(from, event, "no transition")
	}

	if match.Action != nil {
		if err := safeExecuteAction(match.Action); err != nil {
			lc.mutex.Unlock()
			return &EventResult{PreviousState: from, CurrentState: from, Error: err}
		}
	}

	lc.current = match.Target
	hooks := lc.hooks
	lc.mutex.Unlock()

	changed := from != match.Target
	if changed {
		for _, hook := range hooks {
			hook(from, match.Target, event)
		}
	}
	return &EventResult{
		Processed:     true,
		StateChanged:  changed,
		PreviousState: from,
		CurrentState:  match.Target,
	}
}

// safeEvaluateGuard safely evaluates a guard function with panic recovery
func safeEvaluateGuard(guard GuardFunc) (result bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = false
			err = fmt.Errorf("guard panic: %v", r)
		}
	}()

	return guard(), nil
}

// safeExecuteAction safely executes an action function with panic recovery
func safeExecuteAction(action ActionFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panic: %v", r)
		}
	}()

	return action()
}
