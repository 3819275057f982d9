package rigging

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/layers"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/log"
	"github.com/bft-labs/rigging/pkg/taskq"
)

// Start materializes and starts every registered component, layer by layer
// in dependency order, and returns the per-component outcomes in layer
// order. If any component fails, the remaining layers are not attempted
// and every component already started in this phase is rolled back
// (stopped and destroyed, best effort). On failure Start returns an
// aggregate error describing the failures, or a configuration error when
// the graph itself is invalid.
func (o *Orchestrator) Start(ctx context.Context) ([]lifecycle.Outcome, error) {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()

	regs := o.snapshotRegs()
	lys, err := o.computeLayers(regs, PhaseStart)
	if err != nil {
		return nil, err
	}

	byToken := make(map[*container.Token]Registration, len(regs))
	for _, reg := range regs {
		byToken[reg.Token] = reg
	}

	runID := uuid.NewString()
	deadline := o.phaseDeadline()
	begun := time.Now()
	o.logger.Info("start phase",
		log.String("run_id", runID),
		log.Int("components", len(regs)),
		log.Int("layers", len(lys)),
	)

	var all []lifecycle.Outcome
	var details []diag.Detail
	for i, layer := range lys {
		outcomes, runErr := o.runLayer(ctx, layer, func(tctx context.Context, tok *container.Token) lifecycle.Outcome {
			return o.startOne(tctx, byToken[tok], deadline)
		}, true, deadline)
		o.tracePhase(PhaseStart, i, outcomes)
		all = append(all, outcomes...)

		for _, out := range outcomes {
			if !out.OK && !out.Skipped {
				details = append(details, detailOf(out, PhaseStart, false))
			}
		}
		// A run error with no failed outcome means admission was cut short
		// before any component could report: a spent deadline or a
		// cancelled phase context. That is a phase failure, not a success.
		if runErr != nil && len(details) == 0 {
			details = append(details, interruptDetail(PhaseStart, runErr))
		}
		if len(details) > 0 {
			details = append(details, o.rollback(ctx, lys)...)
			return nil, o.reporter.Aggregate(diag.KeyStartFailed, details, map[string]any{
				"run_id": runID,
				"phase":  PhaseStart.String(),
				"layer":  i,
			})
		}
	}

	o.publish()
	o.finishPhase(PhaseStart, runID, len(regs), time.Since(begun))
	return all, nil
}

// Stop stops every started component in reverse dependency order and
// returns the per-component outcomes. Unlike Start, a failure does not halt
// the phase: every layer is still attempted, and all failures are reported
// together at the end.
func (o *Orchestrator) Stop(ctx context.Context) ([]lifecycle.Outcome, error) {
	return o.teardown(ctx, PhaseStop, diag.KeyStopFailed, o.stopOne)
}

// Destroy destroys every materialized component in reverse dependency
// order and returns the per-component outcomes. Components already
// destroyed are skipped. Like Stop, every layer is attempted and failures
// are reported together.
func (o *Orchestrator) Destroy(ctx context.Context) ([]lifecycle.Outcome, error) {
	return o.teardown(ctx, PhaseDestroy, diag.KeyDestroyFailed, o.destroyOne)
}

// teardown is the shared reverse-order driver for Stop and Destroy.
func (o *Orchestrator) teardown(
	ctx context.Context,
	phase Phase,
	key diag.Key,
	step func(ctx context.Context, tok *container.Token, deadline time.Time) lifecycle.Outcome,
) ([]lifecycle.Outcome, error) {
	o.phaseMu.Lock()
	defer o.phaseMu.Unlock()

	regs := o.snapshotRegs()
	lys, err := o.computeLayers(regs, phase)
	if err != nil {
		return nil, err
	}

	existing := o.materializedTokens(regs)
	grouped := layers.Group(existing, lys)

	runID := uuid.NewString()
	deadline := o.phaseDeadline()
	begun := time.Now()
	o.logger.Info(phase.String()+" phase",
		log.String("run_id", runID),
		log.Int("components", len(existing)),
		log.Int("layers", len(grouped)),
	)

	var all []lifecycle.Outcome
	var details []diag.Detail
	for i, layer := range grouped {
		outcomes, runErr := o.runLayer(ctx, layer, func(tctx context.Context, tok *container.Token) lifecycle.Outcome {
			return step(tctx, tok, deadline)
		}, false, deadline)
		o.tracePhase(phase, i, outcomes)
		all = append(all, outcomes...)

		for _, out := range outcomes {
			if !out.OK && !out.Skipped {
				details = append(details, detailOf(out, phase, false))
			}
		}
		// Teardown steps never halt admission themselves, so a run error is
		// always a spent deadline or a cancelled phase context. No further
		// layer can make progress once that happens.
		if runErr != nil {
			details = append(details, interruptDetail(phase, runErr))
			break
		}
	}

	if phase == PhaseDestroy {
		o.unpublish()
	}
	if len(details) > 0 {
		return nil, o.reporter.Aggregate(key, details, map[string]any{
			"run_id": runID,
			"phase":  phase.String(),
		})
	}
	o.finishPhase(phase, runID, len(existing), time.Since(begun))
	return all, nil
}

// interruptDetail records a layer run that was cut short before every
// component could be attempted.
func interruptDetail(phase Phase, err error) diag.Detail {
	return diag.Detail{
		Phase:    phase.String(),
		Err:      err,
		TimedOut: errors.Is(err, taskq.ErrTimeout),
	}
}

// startOne materializes the component if needed, runs its one-shot create
// step, then starts it. A resolution failure is reported against the create
// hook since the instance never came to exist.
func (o *Orchestrator) startOne(ctx context.Context, reg Registration, deadline time.Time) lifecycle.Outcome {
	m, err := o.materialize(reg)
	if err != nil {
		return lifecycle.Outcome{
			Token: reg.Token,
			Hook:  lifecycle.HookCreate,
			From:  lifecycle.StateCreated,
			To:    lifecycle.StateCreated,
			Err:   err,
		}
	}
	if !m.Created() {
		if out := m.Create(ctx, deadline); !out.OK {
			return out
		}
	}
	return m.Start(ctx, deadline)
}

// stopOne stops a started component. Components that never reached the
// started state have nothing to stop and are skipped.
func (o *Orchestrator) stopOne(ctx context.Context, tok *container.Token, deadline time.Time) lifecycle.Outcome {
	m := o.machine(tok)
	if m == nil || m.State() != lifecycle.StateStarted {
		return lifecycle.Outcome{Token: tok, Hook: lifecycle.HookStop, OK: true, Skipped: true}
	}
	return m.Stop(ctx, deadline)
}

// destroyOne destroys a materialized component from whatever non-terminal
// state it is in.
func (o *Orchestrator) destroyOne(ctx context.Context, tok *container.Token, deadline time.Time) lifecycle.Outcome {
	m := o.machine(tok)
	if m == nil {
		return lifecycle.Outcome{Token: tok, Hook: lifecycle.HookDestroy, OK: true, Skipped: true}
	}
	return m.Destroy(ctx, deadline)
}

// rollback unwinds a failed start phase: every component that reached the
// started state is stopped and destroyed, in reverse dependency order,
// sequentially. Rollback is best effort and runs even when the phase
// context was cancelled or its deadline was spent, so it gets a fresh
// budget; its failures are reported but never halt it.
func (o *Orchestrator) rollback(ctx context.Context, lys [][]*container.Token) []diag.Detail {
	var started []*container.Token
	o.machMu.Lock()
	for tok, m := range o.machines {
		if m.State() == lifecycle.StateStarted {
			started = append(started, tok)
		}
	}
	o.machMu.Unlock()
	if len(started) == 0 {
		return nil
	}

	rctx := context.WithoutCancel(ctx)
	deadline := o.phaseDeadline()
	var details []diag.Detail
	for _, layer := range layers.Group(started, lys) {
		for _, tok := range layer {
			m := o.machine(tok)
			if m == nil {
				continue
			}
			o.logger.Warn("rolling back component", log.String("token", tok.Name()))
			if out := m.Stop(rctx, deadline); !out.OK && !out.Skipped {
				details = append(details, detailOf(out, PhaseStop, true))
			}
			if out := m.Destroy(rctx, deadline); !out.OK && !out.Skipped {
				details = append(details, detailOf(out, PhaseDestroy, true))
			}
		}
	}
	return details
}

// publish copies every started instance into the registry, keyed by token
// name. A locked key keeps its current value.
func (o *Orchestrator) publish() {
	reg := o.opts.registry
	if reg == nil {
		return
	}
	o.machMu.Lock()
	defer o.machMu.Unlock()
	for tok, m := range o.machines {
		if m.State() != lifecycle.StateStarted {
			continue
		}
		if err := reg.Set(tok.Name(), m.Instance()); err != nil {
			o.logger.Warn("registry publish skipped",
				log.String("token", tok.Name()),
				log.Err(err),
			)
		}
	}
}

// unpublish drops destroyed instances from the registry. Locked keys keep
// their value.
func (o *Orchestrator) unpublish() {
	reg := o.opts.registry
	if reg == nil {
		return
	}
	o.machMu.Lock()
	defer o.machMu.Unlock()
	for tok, m := range o.machines {
		if m.State() != lifecycle.StateDestroyed {
			continue
		}
		if err := reg.Delete(tok.Name()); err != nil {
			o.logger.Debug("registry unpublish skipped",
				log.String("token", tok.Name()),
				log.Err(err),
			)
		}
	}
}

// materializedTokens filters the registration order down to components that
// have a machine.
func (o *Orchestrator) materializedTokens(regs []Registration) []*container.Token {
	o.machMu.Lock()
	defer o.machMu.Unlock()
	var toks []*container.Token
	for _, reg := range regs {
		if _, ok := o.machines[reg.Token]; ok {
			toks = append(toks, reg.Token)
		}
	}
	return toks
}

// phaseDeadline converts the configured phase timeout into an absolute
// deadline. Zero timeout means no phase bound.
func (o *Orchestrator) phaseDeadline() time.Time {
	if o.opts.phaseTimeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(o.opts.phaseTimeout)
}

// finishPhase records success telemetry for a completed phase.
func (o *Orchestrator) finishPhase(phase Phase, runID string, components int, elapsed time.Duration) {
	o.reporter.Event("phase complete", map[string]any{
		"run_id":     runID,
		"phase":      phase.String(),
		"components": components,
		"elapsed":    elapsed.String(),
	})
	o.reporter.Metric("phase_duration_seconds", elapsed.Seconds(), map[string]string{
		"phase": phase.String(),
	})
}
