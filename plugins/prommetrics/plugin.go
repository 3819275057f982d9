// Package prommetrics exports orchestration metrics to Prometheus. It
// provides a tracer counting component transitions and timing hooks, and a
// sink that receives reporter metrics.
package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bft-labs/rigging"
	"github.com/bft-labs/rigging/pkg/lifecycle"
)

const namespace = "rigging"

// Tracer implements rigging.Tracer over Prometheus collectors.
type Tracer struct {
	transitions *prometheus.CounterVec
	hookSeconds *prometheus.HistogramVec
	layers      prometheus.Gauge
}

var _ rigging.Tracer = (*Tracer)(nil)

// New creates a tracer registering its collectors with reg. A nil reg uses
// the default registerer.
func New(reg prometheus.Registerer) *Tracer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Tracer{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Component transitions by phase and status.",
		}, []string{"phase", "status"}),
		hookSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hook_duration_seconds",
			Help:      "Lifecycle hook batch durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"hook"}),
		layers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layers",
			Help:      "Number of dependency layers in the current graph.",
		}),
	}
}

// OnLayers records the layer count of the computed graph.
func (t *Tracer) OnLayers(layers [][]*rigging.Token) {
	t.layers.Set(float64(len(layers)))
}

// OnPhase counts each outcome and observes hook durations.
func (t *Tracer) OnPhase(phase rigging.Phase, layer int, outcomes []lifecycle.Outcome) {
	for _, out := range outcomes {
		status := "ok"
		switch {
		case out.Skipped:
			status = "skipped"
		case !out.OK:
			status = "failed"
		}
		t.transitions.WithLabelValues(phase.String(), status).Inc()
		if hook := out.Hook.String(); hook != "" && out.Duration > 0 {
			t.hookSeconds.WithLabelValues(hook).Observe(out.Duration.Seconds())
		}
	}
}

// Sink implements diag.MetricSink, exporting reporter observations. Unknown
// metric names are dropped.
type Sink struct {
	phaseSeconds *prometheus.HistogramVec
}

// NewSink creates a sink registering its collectors with reg. A nil reg
// uses the default registerer.
func NewSink(reg prometheus.Registerer) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Sink{
		phaseSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Whole-phase durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
}

// Observe routes a reporter metric to its collector.
func (s *Sink) Observe(name string, value float64, labels map[string]string) {
	switch name {
	case "phase_duration_seconds":
		s.phaseSeconds.WithLabelValues(labels["phase"]).Observe(value)
	}
}
