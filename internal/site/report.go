package site

import (
	"sync"
	"time"
)

// Outcome summarizes how a build ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// BuildReport records what one build did, for logs, the event store and
// the serve endpoints.
type BuildReport struct {
	BuildID   string        `json:"build_id"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`

	PagesRendered int `json:"pages_rendered"`
	PagesReused   int `json:"pages_reused"`

	StageDurations map[StageName]time.Duration `json:"stage_durations"`
	Warnings       []string                    `json:"warnings,omitempty"`
	Error          string                      `json:"error,omitempty"`

	mu sync.Mutex
}

func newBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		BuildID:        buildID,
		StartTime:      time.Now(),
		Outcome:        OutcomeSuccess,
		StageDurations: make(map[StageName]time.Duration),
	}
}

func (r *BuildReport) recordStage(name StageName, dur time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurations[name] = dur
}

func (r *BuildReport) recordStageError(se *StageError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch se.Kind {
	case StageErrorWarning:
		r.Warnings = append(r.Warnings, se.Error())
		if r.Outcome == OutcomeSuccess {
			r.Outcome = OutcomeWarning
		}
	default:
		r.Outcome = OutcomeFailed
		r.Error = se.Error()
	}
}

// AddWarning records a non-fatal observation.
func (r *BuildReport) AddWarning(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
	if r.Outcome == OutcomeSuccess {
		r.Outcome = OutcomeWarning
	}
}

func (r *BuildReport) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(r.StartTime)
}
