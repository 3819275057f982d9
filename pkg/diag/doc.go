// Package diag provides diagnostics for the rigging orchestration engine:
// an enum-keyed message table, typed errors, aggregate errors, and a
// Reporter that builds, logs, and returns them.
//
// # Error Model
//
// Every failure raised from the engine is either an [Error] (one condition,
// one key) or an [AggregateError] (one phase, many per-component details).
// Keys classify the condition; context maps carry the specifics as
// structured fields. Callers match with errors.As:
//
//	var agg *diag.AggregateError
//	if errors.As(err, &agg) {
//	    for _, d := range agg.Details { ... }
//	}
//
// # Telemetry
//
// Event, Metric, and Trace are best-effort: they never return errors and
// never panic. Metric observations are forwarded to an optional
// [MetricSink] so adapters (for example a Prometheus collector) can expose
// them without the engine depending on a metrics library.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package diag
