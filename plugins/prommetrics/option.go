package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/rigging"
)

// WithMetrics returns a rigging Option that installs a Prometheus tracer.
//
// Usage:
//
//	o, err := rigging.New(prommetrics.WithMetrics(nil))
func WithMetrics(reg prometheus.Registerer) rigging.Option {
	return rigging.WithTracer(New(reg))
}
