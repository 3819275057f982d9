package rigging

import (
	"time"

	"github.com/bft-labs/rigging/pkg/container"
	"github.com/bft-labs/rigging/pkg/diag"
	"github.com/bft-labs/rigging/pkg/lifecycle"
	"github.com/bft-labs/rigging/pkg/log"
	"github.com/bft-labs/rigging/pkg/registry"
)

// Option configures optional behavior of an Orchestrator.
type Option func(*options)

// options holds the optional configuration for an Orchestrator.
type options struct {
	logger           log.Logger
	reporter         diag.Reporter
	tracers          []Tracer
	registry         *registry.Registry
	layerConcurrency int
	phaseTimeout     time.Duration
	defaultTimeouts  lifecycle.Timeouts
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger:           log.NewNoopLogger(),
		layerConcurrency: 0, // unbounded within a layer
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithReporter sets the diagnostics reporter. If not provided, a reporter
// backed by the configured logger is used.
func WithReporter(reporter diag.Reporter) Option {
	return func(o *options) {
		o.reporter = reporter
	}
}

// WithTracer registers a tracer observing layer computation and phase
// execution. Tracers are pure observers: they cannot influence scheduling,
// and a panicking tracer is contained and logged.
func WithTracer(tracer Tracer) Option {
	return func(o *options) {
		o.tracers = append(o.tracers, tracer)
	}
}

// WithRegistry sets a registry that receives each component instance by
// token name when a start phase succeeds.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLayerConcurrency bounds how many components of one layer transition
// simultaneously. Zero or negative means unbounded within a layer.
func WithLayerConcurrency(n int) Option {
	return func(o *options) {
		o.layerConcurrency = n
	}
}

// WithPhaseTimeout sets the shared deadline for each phase. All hook
// batches of the phase run under it. Zero means no phase bound.
func WithPhaseTimeout(d time.Duration) Option {
	return func(o *options) {
		o.phaseTimeout = d
	}
}

// WithDefaultTimeouts sets per-hook timeouts applied to registrations that
// do not set their own.
func WithDefaultTimeouts(t lifecycle.Timeouts) Option {
	return func(o *options) {
		o.defaultTimeouts = t
	}
}

// RegisterOption configures a single registration.
type RegisterOption func(*Registration)

// WithDependencies declares the registration's dependencies explicitly.
// When omitted, dependencies are inferred from the provider's injection
// list.
func WithDependencies(deps ...*container.Token) RegisterOption {
	return func(r *Registration) {
		r.DependsOn = deps
	}
}

// WithTimeouts bounds the registration's individual hooks.
func WithTimeouts(t lifecycle.Timeouts) RegisterOption {
	return func(r *Registration) {
		r.Timeouts = t
		r.hasTimeouts = true
	}
}
