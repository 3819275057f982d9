// Package rigging provides a dependency-aware component orchestration
// engine: components are registered against tokens, partitioned into
// dependency layers, and driven through a create/start/stop/destroy
// lifecycle with bounded concurrency and deadline-aware hook execution.
//
// Example usage:
//
//	o, err := rigging.New(
//	    rigging.WithLogger(logger),
//	    rigging.WithPhaseTimeout(30*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	db := rigging.NewToken("db")
//	if err := o.Register(db, rigging.Value(pool)); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := o.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer o.Destroy(context.Background())
package rigging

import (
	"github.com/bft-labs/rigging/pkg/container"
	core "github.com/bft-labs/rigging/pkg/rigging"
)

// Token identifies a registered component. Tokens compare by identity, so
// two tokens with the same name are still distinct components.
type Token = container.Token

// Provider describes how to construct the instance behind a token.
type Provider = container.Provider

// Resolver materializes instances for tokens during resolution.
type Resolver = container.Resolver

// Orchestrator manages startup, teardown, and destruction of registered
// components according to their dependency graph.
type Orchestrator = core.Orchestrator

// Registration binds a token to a provider plus orchestration metadata.
type Registration = core.Registration

// Option configures an Orchestrator at construction.
type Option = core.Option

// RegisterOption configures a single registration.
type RegisterOption = core.RegisterOption

// Phase names one full pass over the registered set.
type Phase = core.Phase

// Phase values, re-exported for single-import use.
const (
	PhaseStart   = core.PhaseStart
	PhaseStop    = core.PhaseStop
	PhaseDestroy = core.PhaseDestroy
)

// Tracer observes layer computation and phase execution.
type Tracer = core.Tracer

// Orchestrator options, re-exported for single-import use.
var (
	WithLogger           = core.WithLogger
	WithReporter         = core.WithReporter
	WithTracer           = core.WithTracer
	WithRegistry         = core.WithRegistry
	WithLayerConcurrency = core.WithLayerConcurrency
	WithPhaseTimeout     = core.WithPhaseTimeout
	WithDefaultTimeouts  = core.WithDefaultTimeouts

	WithDependencies = core.WithDependencies
	WithTimeouts     = core.WithTimeouts
)

// New creates an orchestrator with the given options.
func New(opts ...Option) (*Orchestrator, error) {
	return core.New(opts...)
}

// NewToken creates a token with a diagnostic name.
func NewToken(name string) *Token {
	return container.NewToken(name)
}

// Value creates a provider that yields a pre-built instance.
func Value(v any) Provider {
	return container.Value(v)
}

// Factory creates a provider that calls fn with the resolved dependencies
// in positional order.
func Factory(fn func(deps ...any) (any, error), deps ...*Token) Provider {
	return container.Factory(fn, deps...)
}

// MapFactory creates a provider that calls fn with the resolved
// dependencies keyed by token.
func MapFactory(fn func(deps map[*Token]any) (any, error), deps ...*Token) Provider {
	return container.MapFactory(fn, deps...)
}

// Bind creates a provider that receives the resolver itself.
func Bind(fn func(r Resolver) (any, error), deps ...*Token) Provider {
	return container.Bind(fn, deps...)
}
