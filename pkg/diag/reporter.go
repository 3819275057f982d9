package diag

import (
	"sort"

	"github.com/bft-labs/rigging/pkg/log"
)

// Reporter builds, logs, and returns typed errors, and carries best-effort
// telemetry. Fail and Aggregate return the error they build so callers can
// raise it; Event, Metric, and Trace never fail and never panic.
type Reporter interface {
	// Fail builds and logs an Error for the key and context.
	Fail(key Key, ctx map[string]any) error

	// Aggregate builds and logs an AggregateError for the key and details.
	Aggregate(key Key, details []Detail, ctx map[string]any) error

	// Event records a named occurrence with fields.
	Event(name string, fields map[string]any)

	// Metric records a numeric observation with labels.
	Metric(name string, value float64, labels map[string]string)

	// Trace records fine-grained execution detail with fields.
	Trace(name string, fields map[string]any)
}

// MetricSink receives Metric observations from a reporter. Implementations
// must tolerate unknown metric names.
type MetricSink interface {
	Observe(name string, value float64, labels map[string]string)
}

// LogReporter implements Reporter on top of a log.Logger, forwarding
// metrics to an optional sink.
type LogReporter struct {
	logger log.Logger
	sink   MetricSink
}

// NewReporter creates a log-backed reporter. A nil sink disables metrics
// forwarding; a nil logger falls back to the no-op logger.
func NewReporter(logger log.Logger, sink MetricSink) *LogReporter {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &LogReporter{logger: logger, sink: sink}
}

// Fail builds, logs, and returns an Error for the key and context.
func (r *LogReporter) Fail(key Key, ctx map[string]any) error {
	err := NewError(key, ctx)
	r.logError(SeverityOf(key), key.String(), contextFields(ctx))
	return err
}

// Aggregate builds, logs, and returns an AggregateError.
func (r *LogReporter) Aggregate(key Key, details []Detail, ctx map[string]any) error {
	err := NewAggregate(key, details, ctx)
	fields := contextFields(ctx)
	fields = append(fields, log.Int("failures", len(details)))
	for _, d := range details {
		f := []log.Field{
			log.String("token", d.Token),
			log.String("phase", d.Phase),
			log.Bool("timed_out", d.TimedOut),
			log.Bool("rollback", d.Rollback),
		}
		if d.Hook != "" {
			f = append(f, log.String("hook", d.Hook))
		}
		if d.Err != nil {
			f = append(f, log.Err(d.Err))
		}
		r.logger.Error("component failure", f...)
	}
	r.logError(SeverityOf(key), key.String(), fields)
	return err
}

// Event logs a named occurrence. Never panics.
func (r *LogReporter) Event(name string, fields map[string]any) {
	defer swallow()
	r.logger.Info(name, contextFields(fields)...)
}

// Metric forwards an observation to the sink, if any. Never panics.
func (r *LogReporter) Metric(name string, value float64, labels map[string]string) {
	defer swallow()
	if r.sink != nil {
		r.sink.Observe(name, value, labels)
	}
}

// Trace logs fine-grained execution detail at debug level. Never panics.
func (r *LogReporter) Trace(name string, fields map[string]any) {
	defer swallow()
	r.logger.Debug(name, contextFields(fields)...)
}

func (r *LogReporter) logError(sev Severity, msg string, fields []log.Field) {
	switch sev {
	case SeverityInfo:
		r.logger.Info(msg, fields...)
	case SeverityWarn:
		r.logger.Warn(msg, fields...)
	default:
		r.logger.Error(msg, fields...)
	}
}

// NoopReporter implements Reporter without logging. Fail and Aggregate
// still return typed errors.
type NoopReporter struct{}

// NewNoopReporter creates a reporter that builds errors but emits nothing.
func NewNoopReporter() *NoopReporter {
	return &NoopReporter{}
}

// Fail builds and returns an Error without logging.
func (NoopReporter) Fail(key Key, ctx map[string]any) error {
	return NewError(key, ctx)
}

// Aggregate builds and returns an AggregateError without logging.
func (NoopReporter) Aggregate(key Key, details []Detail, ctx map[string]any) error {
	return NewAggregate(key, details, ctx)
}

// Event discards the event.
func (NoopReporter) Event(name string, fields map[string]any) {}

// Metric discards the observation.
func (NoopReporter) Metric(name string, value float64, labels map[string]string) {}

// Trace discards the trace.
func (NoopReporter) Trace(name string, fields map[string]any) {}

// contextFields converts a context map into sorted log fields.
func contextFields(ctx map[string]any) []log.Field {
	if len(ctx) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]log.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, log.Any(k, ctx[k]))
	}
	return fields
}

// swallow recovers a panic from telemetry paths. Telemetry is best-effort.
func swallow() {
	_ = recover()
}
