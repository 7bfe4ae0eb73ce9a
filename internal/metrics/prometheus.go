package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the build metrics on reg
// (a private registry is created when reg is nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docsite",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "docsite",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docsite",
			Name:      "builds_total",
			Help:      "Completed builds by outcome",
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.stageDuration, r.buildDuration, r.buildOutcome)
	return r
}

func (r *PrometheusRecorder) ObserveStage(stage string, dur time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

func (r *PrometheusRecorder) ObserveBuild(dur time.Duration, outcome string) {
	r.buildDuration.Observe(dur.Seconds())
	r.buildOutcome.WithLabelValues(outcome).Inc()
}
