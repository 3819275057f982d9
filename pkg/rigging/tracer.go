package rigging

import (
	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/log"
)

// Phase names one full pass over the registered set.
type Phase int

const (
	PhaseStart Phase = iota
	PhaseStop
	PhaseDestroy
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseStop:
		return "stop"
	case PhaseDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Tracer observes orchestration. OnLayers fires once per phase after layer
// computation; OnPhase fires after each phase-layer execution with the
// ordered outcomes. Tracers are pure observers and cannot influence
// scheduling.
type Tracer interface {
	OnLayers(layers [][]*container.Token)
	OnPhase(phase Phase, layer int, outcomes []lifecycle.Outcome)
}

// traceLayers notifies every tracer, containing panics.
func (o *Orchestrator) traceLayers(layers [][]*container.Token) {
	for _, tr := range o.opts.tracers {
		o.guardTracer(func() { tr.OnLayers(layers) })
	}
}

// tracePhase notifies every tracer, containing panics.
func (o *Orchestrator) tracePhase(phase Phase, layer int, outcomes []lifecycle.Outcome) {
	for _, tr := range o.opts.tracers {
		o.guardTracer(func() { tr.OnPhase(phase, layer, outcomes) })
	}
}

func (o *Orchestrator) guardTracer(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("tracer panicked", log.Any("panic", r))
		}
	}()
	fn()
}
