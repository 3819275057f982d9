// Package rigging wires the layer engine, the task runner, and the
// lifecycle machines into a component orchestrator.
//
// An [Orchestrator] holds a set of registrations (token, provider,
// dependencies, timeouts). Start materializes each component through the
// container, runs its one-shot create step, and starts the components
// layer by layer in dependency order: a layer begins only after every
// component of the previous layer has started. Within a layer, components
// transition concurrently up to the configured bound, in registration
// order. Stop and Destroy walk the layers in reverse.
//
// # Failure semantics
//
// Start halts at the first failing layer and rolls back every component
// that reached the started state, in reverse order, then returns an
// aggregate error carrying both the original failures and any rollback
// failures. Stop and Destroy never halt: every layer is attempted and all
// failures are reported in one aggregate at the end. A cancelled phase
// context or a spent phase deadline fails the phase the same way, and
// Start still rolls back whatever it started.
//
// # Usage
//
//	o, err := rigging.New(
//	    rigging.WithLogger(logger),
//	    rigging.WithPhaseTimeout(30*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//
//	db := container.NewToken("db")
//	api := container.NewToken("api")
//	_ = o.Register(db, container.Factory(newDB))
//	_ = o.Register(api, container.Factory(newAPI, db), rigging.WithDependencies(db))
//
//	outcomes, err := o.Start(ctx)
//	if err != nil {
//	    return err
//	}
//	_ = outcomes // one per component, in layer order
//	defer o.Destroy(context.Background())
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package rigging
