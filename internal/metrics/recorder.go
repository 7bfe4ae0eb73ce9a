// Package metrics abstracts build instrumentation so the generator stays
// decoupled from the Prometheus client; serve mode wires the real recorder.
package metrics

import "time"

// Recorder receives build timing observations.
type Recorder interface {
	// ObserveStage records one stage execution.
	ObserveStage(stage string, dur time.Duration)
	// ObserveBuild records a completed build and its outcome label.
	ObserveBuild(dur time.Duration, outcome string)
}

// Noop discards all observations.
type Noop struct{}

func (Noop) ObserveStage(string, time.Duration) {}
func (Noop) ObserveBuild(time.Duration, string) {}
