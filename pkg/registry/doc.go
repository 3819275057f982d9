// Package registry provides an explicit name-to-instance registry for
// rigging components.
//
// Instead of a process-global "default instance" singleton, callers create
// a Registry value and pass it where it is needed. The orchestrator can
// publish started components into one (see rigging.WithRegistry), and
// application code reads them back by name.
//
// The "default" key is protected: it can be replaced until locked, but
// never deleted. Any key can be locked to freeze its binding.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package registry
