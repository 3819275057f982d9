package rigging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/registry"
)

// callLog records hook invocations across components in arrival order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (p *callLog) note(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
}

func (p *callLog) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.calls...)
}

func (p *callLog) index(s string) int {
	for i, c := range p.snapshot() {
		if c == s {
			return i
		}
	}
	return -1
}

func (p *callLog) count(s string) int {
	n := 0
	for _, c := range p.snapshot() {
		if c == s {
			n++
		}
	}
	return n
}

// comp implements every lifecycle hook, with injectable failures. With
// ignoreCtx set the start delay runs to completion regardless of
// cancellation, like a hook that never checks its context.
type comp struct {
	name        string
	rec         *callLog
	failCreate  error
	failStart   error
	failStop    error
	failDestroy error
	startDelay  time.Duration
	ignoreCtx   bool
}

func (c *comp) OnCreate(ctx context.Context) error {
	c.rec.note(c.name + ".create")
	return c.failCreate
}

func (c *comp) OnStart(ctx context.Context) error {
	if c.startDelay > 0 {
		if c.ignoreCtx {
			time.Sleep(c.startDelay)
		} else {
			select {
			case <-time.After(c.startDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	c.rec.note(c.name + ".start")
	return c.failStart
}

func (c *comp) OnStop(ctx context.Context) error {
	c.rec.note(c.name + ".stop")
	return c.failStop
}

func (c *comp) OnDestroy(ctx context.Context) error {
	c.rec.note(c.name + ".destroy")
	return c.failDestroy
}

func newOrch(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func register(t *testing.T, o *Orchestrator, c *comp, deps ...*container.Token) *container.Token {
	t.Helper()
	tok := container.NewToken(c.name)
	if err := o.Register(tok, container.Value(c), WithDependencies(deps...)); err != nil {
		t.Fatalf("Register(%s) error = %v", c.name, err)
	}
	return tok
}

func wantState(t *testing.T, o *Orchestrator, tok *container.Token, want lifecycle.State) {
	t.Helper()
	got, ok := o.State(tok)
	if !ok {
		t.Fatalf("State(%s) not materialized", tok.Name())
	}
	if got != want {
		t.Errorf("State(%s) = %s, want %s", tok.Name(), got, want)
	}
}

func TestOrchestrator_StartRespectsDependencyOrder(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})
	b := register(t, o, &comp{name: "b", rec: p, startDelay: 20 * time.Millisecond}, a)
	c := register(t, o, &comp{name: "c", rec: p}, b)

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for _, tok := range []*container.Token{a, b, c} {
		wantState(t, o, tok, lifecycle.StateStarted)
	}
	if ai, bi, ci := p.index("a.start"), p.index("b.start"), p.index("c.start"); !(ai < bi && bi < ci) {
		t.Errorf("start order = %v, want a before b before c", p.snapshot())
	}
	if p.index("a.create") > p.index("a.start") {
		t.Errorf("create must precede start: %v", p.snapshot())
	}
}

func TestOrchestrator_StartFailureRollsBackStarted(t *testing.T) {
	p := &callLog{}
	boom := errors.New("b refused")
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})
	b := register(t, o, &comp{name: "b", rec: p, failStart: boom}, a)

	_, err := o.Start(context.Background())
	if err == nil {
		t.Fatal("Start() = nil, want aggregate error")
	}

	var agg *diag.AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("Start() error type = %T, want *diag.AggregateError", err)
	}
	if agg.Key != diag.KeyStartFailed {
		t.Errorf("aggregate key = %s, want %s", agg.Key, diag.KeyStartFailed)
	}
	if !errors.Is(err, boom) {
		t.Error("aggregate does not wrap the component's failure")
	}

	var original, rollbacks int
	for _, d := range agg.Details {
		if d.Rollback {
			rollbacks++
		} else {
			original++
			if d.Token != "b" {
				t.Errorf("original failure token = %s, want b", d.Token)
			}
		}
	}
	if original != 1 {
		t.Errorf("original failures = %d, want 1", original)
	}
	if rollbacks != 0 {
		t.Errorf("rollback failures = %d, want 0", rollbacks)
	}

	// a was started, so it must be unwound all the way to destroyed. b never
	// started and keeps its created state.
	wantState(t, o, a, lifecycle.StateDestroyed)
	wantState(t, o, b, lifecycle.StateCreated)
	if p.count("a.stop") != 1 || p.count("a.destroy") != 1 {
		t.Errorf("rollback calls = %v, want a stopped and destroyed once", p.snapshot())
	}
}

func TestOrchestrator_StartFailureSkipsLaterLayers(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p, failStart: errors.New("no")})
	register(t, o, &comp{name: "b", rec: p}, a)

	if _, err := o.Start(context.Background()); err == nil {
		t.Fatal("Start() = nil, want error")
	}
	if p.count("b.start") != 0 || p.count("b.create") != 0 {
		t.Errorf("dependent component ran despite failed dependency: %v", p.snapshot())
	}
}

func TestOrchestrator_StartUnknownDependencyIsConfigError(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	ghost := container.NewToken("ghost")
	register(t, o, &comp{name: "a", rec: p}, ghost)

	_, err := o.Start(context.Background())
	var de *diag.Error
	if !errors.As(err, &de) || de.Key != diag.KeyUnknownDependency {
		t.Fatalf("Start() error = %v, want KeyUnknownDependency", err)
	}
	if len(p.snapshot()) != 0 {
		t.Errorf("hooks ran despite config error: %v", p.snapshot())
	}
}

func TestOrchestrator_StartCycleIsConfigError(t *testing.T) {
	o := newOrch(t)
	a := container.NewToken("a")
	b := container.NewToken("b")
	if err := o.Register(a, container.Value(&comp{name: "a", rec: &callLog{}}), WithDependencies(b)); err != nil {
		t.Fatal(err)
	}
	if err := o.Register(b, container.Value(&comp{name: "b", rec: &callLog{}}), WithDependencies(a)); err != nil {
		t.Fatal(err)
	}

	_, err := o.Start(context.Background())
	var de *diag.Error
	if !errors.As(err, &de) || de.Key != diag.KeyDependencyCycle {
		t.Fatalf("Start() error = %v, want KeyDependencyCycle", err)
	}
}

func TestOrchestrator_RegisterDuplicateToken(t *testing.T) {
	o := newOrch(t)
	tok := container.NewToken("dup")
	if err := o.Register(tok, container.Value(1)); err != nil {
		t.Fatal(err)
	}
	err := o.Register(tok, container.Value(2))
	var de *diag.Error
	if !errors.As(err, &de) || de.Key != diag.KeyDuplicateToken {
		t.Fatalf("Register() error = %v, want KeyDuplicateToken", err)
	}
}

func TestOrchestrator_StopAttemptsEveryLayer(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p, failStop: errors.New("a stuck")})
	b := register(t, o, &comp{name: "b", rec: p, failStop: errors.New("b stuck")}, a)

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	_, err := o.Stop(context.Background())
	var agg *diag.AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("Stop() error type = %T, want *diag.AggregateError", err)
	}
	if agg.Key != diag.KeyStopFailed {
		t.Errorf("aggregate key = %s, want %s", agg.Key, diag.KeyStopFailed)
	}
	if len(agg.Details) != 2 {
		t.Fatalf("failures = %d, want 2 (both layers attempted)", len(agg.Details))
	}
	// Reverse order: the dependent stops first.
	if p.index("b.stop") > p.index("a.stop") {
		t.Errorf("stop order = %v, want b before a", p.snapshot())
	}
	wantState(t, o, a, lifecycle.StateStarted)
	wantState(t, o, b, lifecycle.StateStarted)
}

func TestOrchestrator_StopSkipsNeverStarted(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	register(t, o, &comp{name: "a", rec: p})

	if _, err := o.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() before any start error = %v", err)
	}
	if len(p.snapshot()) != 0 {
		t.Errorf("hooks ran for never-materialized component: %v", p.snapshot())
	}
}

func TestOrchestrator_DestroyTwiceIsNoop(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Destroy(context.Background()); err != nil {
		t.Fatalf("first Destroy() error = %v", err)
	}
	if _, err := o.Destroy(context.Background()); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
	if p.count("a.destroy") != 1 {
		t.Errorf("OnDestroy ran %d times, want 1", p.count("a.destroy"))
	}
	wantState(t, o, a, lifecycle.StateDestroyed)
}

func TestOrchestrator_RestartAfterStop(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})

	ctx := context.Background()
	if _, err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Start(ctx); err != nil {
		t.Fatalf("restart error = %v", err)
	}

	wantState(t, o, a, lifecycle.StateStarted)
	if p.count("a.create") != 1 {
		t.Errorf("OnCreate ran %d times, want 1 (create is one-shot)", p.count("a.create"))
	}
	if p.count("a.start") != 2 {
		t.Errorf("OnStart ran %d times, want 2", p.count("a.start"))
	}
}

func TestOrchestrator_RegistryPublication(t *testing.T) {
	p := &callLog{}
	reg := registry.New()
	o := newOrch(t, WithRegistry(reg))
	c := &comp{name: "a", rec: p}
	register(t, o, c)

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, ok := reg.Get("a")
	if !ok {
		t.Fatal("registry missing started component")
	}
	if got != c {
		t.Errorf("registry value = %v, want the component instance", got)
	}
}

func TestOrchestrator_RegistryClearedOnDestroy(t *testing.T) {
	reg := registry.New()
	o := newOrch(t, WithRegistry(reg))
	register(t, o, &comp{name: "a", rec: &callLog{}})

	ctx := context.Background()
	if _, err := o.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get("a"); !ok {
		t.Fatal("registry missing started component")
	}
	if _, err := o.Destroy(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Get("a"); ok {
		t.Error("registry still holds destroyed component")
	}
}

func TestOrchestrator_RegistryLockedKeyKeepsValue(t *testing.T) {
	reg := registry.New()
	if err := reg.Set("a", "pinned"); err != nil {
		t.Fatal(err)
	}
	reg.Lock("a")

	o := newOrch(t, WithRegistry(reg))
	register(t, o, &comp{name: "a", rec: &callLog{}})

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v, want locked key tolerated", err)
	}
	if v, _ := reg.Get("a"); v != "pinned" {
		t.Errorf("registry value = %v, want pinned", v)
	}
}

// captureTracer records layer computations and phase layer outcomes.
type captureTracer struct {
	mu     sync.Mutex
	layers [][]*container.Token
	phases []Phase
}

func (c *captureTracer) OnLayers(layers [][]*container.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers = layers
}

func (c *captureTracer) OnPhase(phase Phase, layer int, outcomes []lifecycle.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases = append(c.phases, phase)
}

// panicTracer panics on every callback.
type panicTracer struct{}

func (panicTracer) OnLayers([][]*container.Token) {
	panic("layers")
}

func (panicTracer) OnPhase(Phase, int, []lifecycle.Outcome) {
	panic("phase")
}

func TestOrchestrator_TracerObservesPhases(t *testing.T) {
	tr := &captureTracer{}
	o := newOrch(t, WithTracer(tr), WithTracer(panicTracer{}))
	p := &callLog{}
	a := register(t, o, &comp{name: "a", rec: p})
	register(t, o, &comp{name: "b", rec: p}, a)

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v (panicking tracer must be contained)", err)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.layers) != 2 {
		t.Errorf("OnLayers saw %d layers, want 2", len(tr.layers))
	}
	if len(tr.phases) != 2 {
		t.Errorf("OnPhase fired %d times, want once per layer", len(tr.phases))
	}
	for _, ph := range tr.phases {
		if ph != PhaseStart {
			t.Errorf("OnPhase phase = %s, want start", ph)
		}
	}
}

func TestOrchestrator_SubscribeStartEvents(t *testing.T) {
	o := newOrch(t)
	p := &callLog{}
	register(t, o, &comp{name: "a", rec: p})
	register(t, o, &comp{name: "b", rec: p})

	var mu sync.Mutex
	var seen []string
	unsub := o.SubscribeStart(func(ev lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Token.Name())
	})

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	n := len(seen)
	mu.Unlock()
	if n != 2 {
		t.Errorf("start events = %d, want 2", n)
	}

	unsub()
	if _, err := o.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != n {
		t.Errorf("events after unsubscribe = %d, want %d", len(seen), n)
	}
}

func TestOrchestrator_LayerConcurrencySequentialWithinLayer(t *testing.T) {
	p := &callLog{}
	o := newOrch(t, WithLayerConcurrency(1))
	register(t, o, &comp{name: "a", rec: p, startDelay: 10 * time.Millisecond})
	register(t, o, &comp{name: "b", rec: p})

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	// With concurrency 1 the layer runs in registration order.
	if p.index("a.start") > p.index("b.start") {
		t.Errorf("start order = %v, want a before b", p.snapshot())
	}
}

func TestOrchestrator_HookTimeoutFailsStart(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	tok := container.NewToken("slow")
	c := &comp{name: "slow", rec: p, startDelay: 200 * time.Millisecond}
	err := o.Register(tok, container.Value(c), WithTimeouts(lifecycle.Timeouts{
		OnStart: 10 * time.Millisecond,
	}))
	if err != nil {
		t.Fatal(err)
	}

	_, startErr := o.Start(context.Background())
	var agg *diag.AggregateError
	if !errors.As(startErr, &agg) {
		t.Fatalf("Start() error type = %T, want *diag.AggregateError", startErr)
	}
	found := false
	for _, d := range agg.Details {
		if d.Token == "slow" && d.TimedOut {
			found = true
		}
	}
	if !found {
		t.Errorf("aggregate details = %+v, want a timed-out failure for slow", agg.Details)
	}
	wantState(t, o, tok, lifecycle.StateCreated)
}

func TestOrchestrator_FactoryResolutionFailureReported(t *testing.T) {
	o := newOrch(t)
	tok := container.NewToken("broken")
	boom := errors.New("cannot build")
	err := o.Register(tok, container.Factory(func(deps ...any) (any, error) {
		return nil, boom
	}))
	if err != nil {
		t.Fatal(err)
	}

	_, startErr := o.Start(context.Background())
	var agg *diag.AggregateError
	if !errors.As(startErr, &agg) {
		t.Fatalf("Start() error type = %T, want *diag.AggregateError", startErr)
	}
	if !errors.Is(startErr, boom) {
		t.Error("aggregate does not wrap the factory's error")
	}
	if _, ok := o.State(tok); ok {
		t.Error("component materialized despite factory failure")
	}
}

func TestOrchestrator_PhasesReturnOrderedOutcomes(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})
	b := register(t, o, &comp{name: "b", rec: p}, a)

	outcomes, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("Start() outcomes = %d, want 2", len(outcomes))
	}
	if outcomes[0].Token != a || outcomes[1].Token != b {
		t.Errorf("Start() outcome order = [%s %s], want [a b]",
			outcomes[0].Token.Name(), outcomes[1].Token.Name())
	}
	for _, out := range outcomes {
		if !out.OK || out.Hook != lifecycle.HookStart {
			t.Errorf("Start() outcome = %+v, want successful start", out)
		}
	}

	outcomes, err = o.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(outcomes) != 2 || outcomes[0].Token != b || outcomes[1].Token != a {
		t.Errorf("Stop() outcomes = %+v, want [b a] in reverse layer order", outcomes)
	}
}

func TestOrchestrator_StartExpiredDeadlineFails(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	register(t, o, &comp{name: "a", rec: p})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	outcomes, err := o.Start(ctx)
	if err == nil {
		t.Fatal("Start() with a spent deadline = nil, want aggregate error")
	}
	var agg *diag.AggregateError
	if !errors.As(err, &agg) || agg.Key != diag.KeyStartFailed {
		t.Fatalf("Start() error = %v, want KeyStartFailed aggregate", err)
	}
	timedOut := false
	for _, d := range agg.Details {
		if d.TimedOut {
			timedOut = true
		}
	}
	if !timedOut {
		t.Errorf("aggregate details = %+v, want a timed-out failure", agg.Details)
	}
	if outcomes != nil {
		t.Errorf("outcomes = %+v, want nil on failure", outcomes)
	}
	if len(p.snapshot()) != 0 {
		t.Errorf("hooks ran despite spent deadline: %v", p.snapshot())
	}
}

func TestOrchestrator_CancelledStartRollsBack(t *testing.T) {
	p := &callLog{}
	o := newOrch(t)
	a := register(t, o, &comp{name: "a", rec: p})
	register(t, o, &comp{name: "b", rec: p, startDelay: 500 * time.Millisecond}, a)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := o.Start(ctx)
	if err == nil {
		t.Fatal("Start() = nil, want cancellation failure")
	}
	var agg *diag.AggregateError
	if !errors.As(err, &agg) || agg.Key != diag.KeyStartFailed {
		t.Fatalf("Start() error = %v, want KeyStartFailed aggregate", err)
	}
	if p.count("b.start") != 0 {
		t.Errorf("cancelled hook recorded a start: %v", p.snapshot())
	}
	// a started in the first layer, so cancellation still unwinds it.
	wantState(t, o, a, lifecycle.StateDestroyed)
}

func TestOrchestrator_PhaseTimeoutStubbornHook(t *testing.T) {
	p := &callLog{}
	o := newOrch(t, WithPhaseTimeout(30*time.Millisecond))
	register(t, o, &comp{name: "a", rec: p, startDelay: 150 * time.Millisecond, ignoreCtx: true})

	_, err := o.Start(context.Background())
	if err == nil {
		t.Fatal("Start() = nil, want timeout failure")
	}
	var agg *diag.AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("Start() error type = %T, want *diag.AggregateError", err)
	}
	timedOut := false
	for _, d := range agg.Details {
		if d.TimedOut {
			timedOut = true
		}
	}
	if !timedOut {
		t.Errorf("aggregate details = %+v, want a timed-out failure", agg.Details)
	}
}
