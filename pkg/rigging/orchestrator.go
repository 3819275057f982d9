package rigging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/layers"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/log"
	"github.com/bft-labs/rigging/pkg/registry"
	"github.com/bft-labs/rigging/pkg/taskq"
)

// Registration binds a token to a provider plus orchestration metadata.
type Registration struct {
	Token     *container.Token
	Provider  container.Provider
	DependsOn []*container.Token
	Timeouts  lifecycle.Timeouts

	hasTimeouts bool
}

// dependencies returns the effective dependency list: the explicit one, or
// the provider's injection list when none was declared.
func (r Registration) dependencies() []*container.Token {
	if r.DependsOn != nil {
		return r.DependsOn
	}
	return r.Provider.Dependencies()
}

// Orchestrator manages startup, teardown, and destruction of registered
// components according to their dependency graph. Use New() to create an
// instance, Register() to add components, then Start/Stop/Destroy to run
// phases.
type Orchestrator struct {
	// phaseMu serializes phases: a new phase never begins while a previous
	// one has not settled.
	phaseMu sync.Mutex

	opts     options
	logger   log.Logger
	reporter diag.Reporter

	regMu sync.Mutex
	cont  *container.Container
	regs  []Registration

	machMu   sync.Mutex
	machines map[*container.Token]*lifecycle.Machine

	subMu sync.Mutex
	next  int
	subs  map[lifecycle.EventKind]map[int]lifecycle.Listener
}

// New creates an orchestrator with the given options.
// Returns an error if the module versions are incompatible.
func New(opts ...Option) (*Orchestrator, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = diag.NewReporter(o.logger, nil)
	}

	return &Orchestrator{
		opts:     o,
		logger:   o.logger,
		reporter: o.reporter,
		cont:     container.New(),
		machines: make(map[*container.Token]*lifecycle.Machine),
		subs:     make(map[lifecycle.EventKind]map[int]lifecycle.Listener),
	}, nil
}

// Register adds a component. Duplicate tokens and invalid providers are
// configuration errors, rejected immediately.
func (o *Orchestrator) Register(t *container.Token, p container.Provider, opts ...RegisterOption) error {
	reg := Registration{Token: t, Provider: p}
	for _, opt := range opts {
		opt(&reg)
	}
	if !reg.hasTimeouts {
		reg.Timeouts = o.opts.defaultTimeouts
	}

	o.regMu.Lock()
	defer o.regMu.Unlock()
	if err := o.cont.Register(t, p); err != nil {
		return err
	}
	o.regs = append(o.regs, reg)
	o.logger.Debug("component registered",
		log.String("token", t.Name()),
		log.Int("dependencies", len(reg.dependencies())),
	)
	return nil
}

// Registry returns the registry instances are published into, if any.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.opts.registry
}

// State returns a component's current lifecycle state. The second return
// value is false when the component has never been materialized.
func (o *Orchestrator) State(t *container.Token) (lifecycle.State, bool) {
	o.machMu.Lock()
	defer o.machMu.Unlock()
	m, ok := o.machines[t]
	if !ok {
		return lifecycle.StateCreated, false
	}
	return m.State(), true
}

// Subscribe registers a listener for one lifecycle event kind across all
// components and returns its unsubscribe function.
func (o *Orchestrator) Subscribe(kind lifecycle.EventKind, fn lifecycle.Listener) func() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	id := o.next
	o.next++
	if o.subs[kind] == nil {
		o.subs[kind] = make(map[int]lifecycle.Listener)
	}
	o.subs[kind][id] = fn
	return func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		delete(o.subs[kind], id)
	}
}

// SubscribeTransition registers a listener for successful transitions.
func (o *Orchestrator) SubscribeTransition(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventTransition, fn)
}

// SubscribeCreate registers a listener for component creation.
func (o *Orchestrator) SubscribeCreate(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventCreate, fn)
}

// SubscribeStart registers a listener for successful starts.
func (o *Orchestrator) SubscribeStart(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventStart, fn)
}

// SubscribeStop registers a listener for successful stops.
func (o *Orchestrator) SubscribeStop(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventStop, fn)
}

// SubscribeDestroy registers a listener for successful destroys.
func (o *Orchestrator) SubscribeDestroy(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventDestroy, fn)
}

// SubscribeError registers a listener for failed transitions.
func (o *Orchestrator) SubscribeError(fn lifecycle.Listener) func() {
	return o.Subscribe(lifecycle.EventError, fn)
}

// dispatch fans one machine event out to orchestrator-level subscribers.
func (o *Orchestrator) dispatch(ev lifecycle.Event) {
	o.subMu.Lock()
	listeners := make([]lifecycle.Listener, 0, len(o.subs[ev.Kind]))
	for _, fn := range o.subs[ev.Kind] {
		listeners = append(listeners, fn)
	}
	o.subMu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// snapshotRegs copies the registration list for a phase.
func (o *Orchestrator) snapshotRegs() []Registration {
	o.regMu.Lock()
	defer o.regMu.Unlock()
	return append([]Registration{}, o.regs...)
}

// machine returns the component's machine, if materialized.
func (o *Orchestrator) machine(t *container.Token) *lifecycle.Machine {
	o.machMu.Lock()
	defer o.machMu.Unlock()
	return o.machines[t]
}

// materialize resolves the instance and builds the machine on first start.
func (o *Orchestrator) materialize(reg Registration) (*lifecycle.Machine, error) {
	o.machMu.Lock()
	if m, ok := o.machines[reg.Token]; ok {
		o.machMu.Unlock()
		return m, nil
	}
	o.machMu.Unlock()

	inst, err := o.cont.Resolve(reg.Token)
	if err != nil {
		return nil, err
	}

	m := lifecycle.NewMachine(reg.Token, inst, reg.Timeouts)
	m.SubscribeEvents(o.dispatch)

	o.machMu.Lock()
	defer o.machMu.Unlock()
	if existing, ok := o.machines[reg.Token]; ok {
		return existing, nil
	}
	o.machines[reg.Token] = m
	return m, nil
}

// computeLayers validates the graph and partitions it, mapping layering
// errors onto diagnostic keys.
func (o *Orchestrator) computeLayers(regs []Registration, phase Phase) ([][]*container.Token, error) {
	nodes := make([]layers.Node, len(regs))
	for i, reg := range regs {
		nodes[i] = layers.Node{Token: reg.Token, DependsOn: reg.dependencies()}
	}
	lys, err := layers.Compute(nodes)
	if err != nil {
		return nil, o.reporter.Fail(layerErrorKey(err), map[string]any{
			"phase": phase.String(),
			"cause": err.Error(),
		})
	}
	o.traceLayers(lys)
	return lys, nil
}

func layerErrorKey(err error) diag.Key {
	switch {
	case errors.Is(err, layers.ErrCycle):
		return diag.KeyDependencyCycle
	case errors.Is(err, layers.ErrUnknownDependency):
		return diag.KeyUnknownDependency
	case errors.Is(err, layers.ErrDuplicateToken):
		return diag.KeyDuplicateToken
	default:
		return diag.KeyUnknown
	}
}

// detailOf converts a failed outcome into an aggregate detail.
func detailOf(out lifecycle.Outcome, phase Phase, rollback bool) diag.Detail {
	return diag.Detail{
		Token:    out.Token.Name(),
		Phase:    phase.String(),
		Hook:     out.Hook.String(),
		Err:      out.Err,
		TimedOut: out.TimedOut,
		Rollback: rollback,
	}
}

// layerOutcome pairs a settled step with its slot in the layer.
type layerOutcome struct {
	idx int
	out lifecycle.Outcome
}

// runLayer drives one layer's transitions through the task runner, bounded
// by the per-layer concurrency under the phase deadline. Components are
// admitted in layer order. The step function must not return an error when
// failures should not halt admission (stop/destroy).
func (o *Orchestrator) runLayer(
	ctx context.Context,
	layer []*container.Token,
	step func(ctx context.Context, tok *container.Token) lifecycle.Outcome,
	haltOnFailure bool,
	deadline time.Time,
) ([]lifecycle.Outcome, error) {
	// Steps report through a buffered channel rather than writing shared
	// slots: a step abandoned at the deadline may settle after the run
	// returns, and its late send lands in the buffer unread.
	settled := make(chan layerOutcome, len(layer))
	tasks := make([]taskq.Task, len(layer))
	for i, tok := range layer {
		i, tok := i, tok
		tasks[i] = func(tctx context.Context) (any, error) {
			out := step(tctx, tok)
			settled <- layerOutcome{idx: i, out: out}
			if haltOnFailure && !out.OK {
				return nil, out.Err
			}
			return nil, nil
		}
	}

	_, runErr := taskq.Run(ctx, tasks, taskq.Options{
		Concurrency: o.opts.layerConcurrency,
		Deadline:    deadline,
	})

	outcomes := make([]lifecycle.Outcome, len(layer))
	draining := true
	for draining {
		select {
		case s := <-settled:
			outcomes[s.idx] = s.out
		default:
			draining = false
		}
	}

	// Components never admitted (halted admission, cancellation) are
	// marked skipped so the outcome list stays positional.
	for i, tok := range layer {
		if outcomes[i].Token == nil {
			outcomes[i] = lifecycle.Outcome{Token: tok, OK: false, Skipped: true}
		}
	}
	return outcomes, runErr
}
