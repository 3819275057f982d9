package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/taskq"
)

// Outcome is the per-component result of one phase step.
type Outcome struct {
	Token    *container.Token
	Hook     Hook
	From     State
	To       State
	OK       bool
	Skipped  bool
	Duration time.Duration
	TimedOut bool
	Err      error
}

// Observer is the onTransition hook: it runs inside the transition batch,
// after the lifecycle hook, under the same deadline. An observer error
// fails the transition like a hook error.
type Observer func(ctx context.Context, from, to State) error

// Machine drives the lifecycle of a single component instance. Transitions
// are serialized: a second transition blocks until the current one settles.
// The state lock is not held while hooks run, so a hook may call State,
// Created, or Subscribe on its own machine.
type Machine struct {
	// runMu serializes transitions end to end.
	runMu sync.Mutex

	// mu guards the recorded state, the created flag, the observer, and
	// the subscription table.
	mu       sync.Mutex
	token    *container.Token
	instance any
	state    State
	created  bool
	timeouts Timeouts
	observer Observer
	subs     *subscriptions
}

// NewMachine creates a machine for an instance, in StateCreated. The
// OnCreate hook has not run yet; the orchestrator drives it via Create.
func NewMachine(token *container.Token, instance any, timeouts Timeouts) *Machine {
	return &Machine{
		token:    token,
		instance: instance,
		state:    StateCreated,
		timeouts: timeouts,
		subs:     newSubscriptions(),
	}
}

// SetObserver installs the onTransition hook. Pass nil to clear it.
func (m *Machine) SetObserver(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Token returns the component's token.
func (m *Machine) Token() *container.Token {
	return m.token
}

// Instance returns the materialized component instance.
func (m *Machine) Instance() any {
	return m.instance
}

// State returns the current recorded state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Created reports whether the OnCreate hook has completed.
func (m *Machine) Created() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Create runs the OnCreate hook. It is a one-shot step, legal only while
// the machine is still at StateCreated; the state does not change.
func (m *Machine) Create(ctx context.Context, deadline time.Time) Outcome {
	m.runMu.Lock()
	m.mu.Lock()
	if m.state != StateCreated || m.created {
		out := m.invalidLocked(HookCreate, StateCreated)
		m.mu.Unlock()
		m.runMu.Unlock()
		m.notify(out)
		return out
	}
	obs := m.observer
	m.mu.Unlock()

	out := m.runBatch(ctx, HookCreate, StateCreated, StateCreated, obs, deadline)
	if out.OK {
		m.mu.Lock()
		m.created = true
		m.mu.Unlock()
	}
	m.runMu.Unlock()
	m.notify(out)
	return out
}

// Start transitions created->started or stopped->started.
func (m *Machine) Start(ctx context.Context, deadline time.Time) Outcome {
	return m.transition(ctx, StateStarted, HookStart, deadline)
}

// Stop transitions started->stopped.
func (m *Machine) Stop(ctx context.Context, deadline time.Time) Outcome {
	return m.transition(ctx, StateStopped, HookStop, deadline)
}

// Destroy transitions any non-terminal state to destroyed. Destroying an
// already-destroyed machine is a no-op success, not an error.
func (m *Machine) Destroy(ctx context.Context, deadline time.Time) Outcome {
	m.runMu.Lock()
	m.mu.Lock()
	if m.state == StateDestroyed {
		out := Outcome{
			Token:   m.token,
			Hook:    HookDestroy,
			From:    StateDestroyed,
			To:      StateDestroyed,
			OK:      true,
			Skipped: true,
		}
		m.mu.Unlock()
		m.runMu.Unlock()
		return out
	}
	m.mu.Unlock()

	out := m.advance(ctx, StateDestroyed, HookDestroy, deadline)
	m.runMu.Unlock()
	m.notify(out)
	return out
}

// Subscribe registers a listener for one event kind and returns its
// unsubscribe function.
func (m *Machine) Subscribe(kind EventKind, fn Listener) func() {
	m.mu.Lock()
	unsub := m.subs.add(kind, fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		unsub()
	}
}

// SubscribeTransition registers a listener for successful transitions.
func (m *Machine) SubscribeTransition(fn Listener) func() { return m.Subscribe(EventTransition, fn) }

// SubscribeCreate registers a listener for the create step.
func (m *Machine) SubscribeCreate(fn Listener) func() { return m.Subscribe(EventCreate, fn) }

// SubscribeStart registers a listener for successful starts.
func (m *Machine) SubscribeStart(fn Listener) func() { return m.Subscribe(EventStart, fn) }

// SubscribeStop registers a listener for successful stops.
func (m *Machine) SubscribeStop(fn Listener) func() { return m.Subscribe(EventStop, fn) }

// SubscribeDestroy registers a listener for successful destroys.
func (m *Machine) SubscribeDestroy(fn Listener) func() { return m.Subscribe(EventDestroy, fn) }

// SubscribeError registers a listener for failed transitions.
func (m *Machine) SubscribeError(fn Listener) func() { return m.Subscribe(EventError, fn) }

// SubscribeEvents registers a listener for every event kind.
func (m *Machine) SubscribeEvents(fn Listener) func() {
	m.mu.Lock()
	unsub := m.subs.addAll(fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		unsub()
	}
}

// transition validates, runs the hook batch, and advances state on success.
func (m *Machine) transition(ctx context.Context, target State, hook Hook, deadline time.Time) Outcome {
	m.runMu.Lock()
	out := m.advance(ctx, target, hook, deadline)
	m.runMu.Unlock()
	m.notify(out)
	return out
}

// advance validates the transition, runs the hook batch, and records the
// new state on success. Caller holds runMu; the state lock is only taken
// around the reads and the final write, never across the batch.
func (m *Machine) advance(ctx context.Context, target State, hook Hook, deadline time.Time) Outcome {
	m.mu.Lock()
	if !legal(m.state, target) {
		out := m.invalidLocked(hook, target)
		m.mu.Unlock()
		return out
	}
	from := m.state
	obs := m.observer
	m.mu.Unlock()

	out := m.runBatch(ctx, hook, from, target, obs, deadline)
	if out.OK {
		m.mu.Lock()
		m.state = target
		m.mu.Unlock()
	}
	return out
}

// invalidLocked builds the failed outcome for an illegal transition.
// State is unchanged. Caller holds the lock.
func (m *Machine) invalidLocked(hook Hook, target State) Outcome {
	err := diag.NewError(diag.KeyInvalidTransition, map[string]any{
		"token": m.token.Name(),
		"from":  m.state.String(),
		"to":    target.String(),
	})
	return Outcome{
		Token: m.token,
		Hook:  hook,
		From:  m.state,
		To:    m.state,
		OK:    false,
		Err:   err,
	}
}

// runBatch runs the lifecycle hook and the onTransition observer as a
// two-task batch with concurrency 1 under the shared deadline, so neither
// can starve the other's time budget. The recorded state is not touched
// here; a failed batch leaves it exactly as it was. Caller holds runMu.
func (m *Machine) runBatch(ctx context.Context, hook Hook, from, target State, obs Observer, deadline time.Time) Outcome {
	var tasks []taskq.Task
	if fn := hookFor(m.instance, hook); fn != nil {
		tasks = append(tasks, func(tctx context.Context) (any, error) {
			return nil, fn(tctx)
		})
	}
	if obs != nil {
		tasks = append(tasks, func(tctx context.Context) (any, error) {
			return nil, obs(tctx, from, target)
		})
	}

	started := time.Now()
	var runErr error
	if len(tasks) > 0 {
		_, runErr = taskq.Run(ctx, tasks, taskq.Options{
			Concurrency: 1,
			Timeout:     m.timeouts.forHook(hook),
			Deadline:    deadline,
		})
	}
	elapsed := time.Since(started)

	if runErr != nil {
		timedOut := false
		var te *taskq.TaskError
		if errors.As(runErr, &te) {
			timedOut = te.TimedOut
		}
		key := diag.KeyHookFailed
		if timedOut {
			key = diag.KeyHookTimeout
		}
		err := diag.WrapError(key, runErr, map[string]any{
			"token": m.token.Name(),
			"hook":  hook.String(),
			"from":  from.String(),
			"to":    target.String(),
		})
		return Outcome{
			Token:    m.token,
			Hook:     hook,
			From:     from,
			To:       from,
			OK:       false,
			Duration: elapsed,
			TimedOut: timedOut,
			Err:      err,
		}
	}

	return Outcome{
		Token:    m.token,
		Hook:     hook,
		From:     from,
		To:       target,
		OK:       true,
		Duration: elapsed,
	}
}

// notify delivers events synchronously, outside the machine lock. A
// successful transition emits a transition event then the hook-specific
// event; a failure emits an error event.
func (m *Machine) notify(out Outcome) {
	ev := Event{
		Token:    out.Token,
		From:     out.From,
		To:       out.To,
		Hook:     out.Hook,
		Err:      out.Err,
		TimedOut: out.TimedOut,
		Duration: out.Duration,
	}
	if !out.OK {
		ev.Kind = EventError
		m.emit(ev)
		return
	}
	ev.Kind = EventTransition
	m.emit(ev)
	if kind, ok := hookEvent(out.Hook); ok {
		ev.Kind = kind
		m.emit(ev)
	}
}

func (m *Machine) emit(ev Event) {
	m.mu.Lock()
	listeners := m.subs.snapshot(ev.Kind)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// hookFor selects the instance's hook implementation, if any.
func hookFor(instance any, hook Hook) func(context.Context) error {
	switch hook {
	case HookCreate:
		if c, ok := instance.(Creator); ok {
			return c.OnCreate
		}
	case HookStart:
		if s, ok := instance.(Starter); ok {
			return s.OnStart
		}
	case HookStop:
		if s, ok := instance.(Stopper); ok {
			return s.OnStop
		}
	case HookDestroy:
		if d, ok := instance.(Destroyer); ok {
			return d.OnDestroy
		}
	}
	return nil
}

// hookEvent maps a hook to its event kind.
func hookEvent(h Hook) (EventKind, bool) {
	switch h {
	case HookCreate:
		return EventCreate, true
	case HookStart:
		return EventStart, true
	case HookStop:
		return EventStop, true
	case HookDestroy:
		return EventDestroy, true
	default:
		return 0, false
	}
}
