// Package layers computes the dependency layering used by the rigging
// orchestrator: a partition of a dependency graph into ordered layers for
// parallel-within-layer, strict-across-layer execution.
//
// The package is stateless and reentrant; Compute and Group are pure
// functions.
//
// # Usage
//
//	nodes := []layers.Node{
//	    {Token: db},
//	    {Token: cache, DependsOn: []*container.Token{db}},
//	    {Token: api, DependsOn: []*container.Token{db, cache}},
//	}
//	lys, err := layers.Compute(nodes) // [[db] [cache] [api]]
//
//	// Teardown order for a subset, dependents first:
//	groups := layers.Group([]*container.Token{db, api}, lys) // [[api] [db]]
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package layers
