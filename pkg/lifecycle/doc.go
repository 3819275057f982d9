// Package lifecycle provides the per-component state machine for the
// rigging orchestration engine.
//
// A [Machine] tracks one component through created, started, stopped, and
// destroyed. Each transition drives at most one lifecycle hook (OnCreate,
// OnStart, OnStop, OnDestroy) plus the optional onTransition observer as a
// two-task, concurrency-1 batch through the task runner, under the phase
// deadline. A hook that exceeds its budget fails the transition with a
// timeout outcome instead of corrupting state: the machine advances its
// recorded state only when the batch succeeds.
//
// # Hooks
//
// Components implement only the hooks they need:
//
//	type cache struct{ ... }
//
//	func (c *cache) OnStart(ctx context.Context) error { ... }
//	func (c *cache) OnStop(ctx context.Context) error  { ... }
//
// Cancellation is cooperative: a hook that ignores its context runs to its
// own completion even after the budget expires, but the transition has
// already been recorded as failed.
//
// # Events
//
// On success or failure the machine synchronously notifies subscribers: a
// transition event, a hook-specific event, or an error event. Every
// Subscribe variant returns an unsubscribe function.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
