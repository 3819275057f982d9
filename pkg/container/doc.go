// Package container provides the dependency-injection collaborator for the
// rigging orchestration engine: identity-equal tokens, a closed set of
// provider variants, and a synchronous, memoizing resolver.
//
// # Tokens
//
// A [Token] stands for a component contract. Tokens compare by identity,
// so contracts cannot collide by name:
//
//	dbTok := container.NewToken("db")
//	cacheTok := container.NewToken("cache")
//
// # Providers
//
// Providers form a closed tagged union, discriminated when constructed:
//
//	container.Value(cfg)                          // pre-built instance
//	container.Factory(newCache, dbTok)            // positional dependencies
//	container.MapFactory(newAPI, dbTok, cacheTok) // token-keyed dependencies
//	container.Bind(wire, dbTok)                   // receives the resolver
//
// Providers must be synchronous. A provider whose result is a channel is
// rejected at resolve time; asynchronous setup belongs in lifecycle hooks.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package container
