package lifecycle

import (
	"context"
	"time"
)

// State is the lifecycle state of a component.
type State int

const (
	// StateCreated — the component instance exists but has not started.
	StateCreated State = iota

	// StateStarted — the component is running.
	StateStarted

	// StateStopped — the component was started and has been stopped.
	StateStopped

	// StateDestroyed — the component is gone. Terminal.
	StateDestroyed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// legal reports whether a transition is allowed.
//
// Valid transitions:
//   - created -> started
//   - started -> stopped
//   - stopped -> started (restart)
//   - created, started, stopped -> destroyed
//
// destroyed is terminal.
func legal(from, to State) bool {
	switch to {
	case StateStarted:
		return from == StateCreated || from == StateStopped
	case StateStopped:
		return from == StateStarted
	case StateDestroyed:
		return from != StateDestroyed
	default:
		return false
	}
}

// Hook names one lifecycle callback.
type Hook int

const (
	HookNone Hook = iota
	HookCreate
	HookStart
	HookStop
	HookDestroy
)

// String returns the hook's conventional name.
func (h Hook) String() string {
	switch h {
	case HookCreate:
		return "onCreate"
	case HookStart:
		return "onStart"
	case HookStop:
		return "onStop"
	case HookDestroy:
		return "onDestroy"
	default:
		return ""
	}
}

// Optional hook interfaces. A component implements only the hooks it
// needs; a missing hook makes the transition itself instantaneous.
type (
	// Creator runs once when the component instance is materialized.
	Creator interface {
		OnCreate(ctx context.Context) error
	}

	// Starter runs on created->started and stopped->started.
	Starter interface {
		OnStart(ctx context.Context) error
	}

	// Stopper runs on started->stopped.
	Stopper interface {
		OnStop(ctx context.Context) error
	}

	// Destroyer runs on the transition to destroyed.
	Destroyer interface {
		OnDestroy(ctx context.Context) error
	}
)

// Timeouts bounds individual hooks. A zero value means no per-hook bound;
// the phase deadline still applies.
type Timeouts struct {
	OnCreate  time.Duration
	OnStart   time.Duration
	OnStop    time.Duration
	OnDestroy time.Duration
}

// forHook returns the bound for one hook.
func (t Timeouts) forHook(h Hook) time.Duration {
	switch h {
	case HookCreate:
		return t.OnCreate
	case HookStart:
		return t.OnStart
	case HookStop:
		return t.OnStop
	case HookDestroy:
		return t.OnDestroy
	default:
		return 0
	}
}
