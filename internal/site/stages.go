package site

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageResolveNav    StageName = "resolve_nav"
	StageLoadPages     StageName = "load_pages"
	StageRunPlugins    StageName = "run_plugins"
	StageRender        StageName = "render"
	StageAssets        StageName = "assets"
	StageGitInfo       StageName = "git_info"
	StageFinalize      StageName = "finalize"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newStageError(kind StageErrorKind, stage StageName, err error) *StageError {
	return &StageError{Kind: kind, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its implementation.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error. Warning-classified errors are recorded on the report
// and execution continues.
func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newStageError(StageErrorCanceled, st.Name, ctx.Err())
			bs.Report.recordStageError(se)
			return se
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.recordStage(st.Name, dur)
		if bs.Recorder != nil {
			bs.Recorder.ObserveStage(string(st.Name), dur)
		}

		if err == nil {
			slog.Debug("Stage complete", "stage", st.Name, "duration", dur)
			continue
		}

		se, ok := err.(*StageError)
		if !ok {
			se = newStageError(StageErrorFatal, st.Name, err)
		}
		bs.Report.recordStageError(se)
		if se.Kind == StageErrorWarning {
			slog.Warn("Stage finished with warning", "stage", st.Name, "error", se.Err)
			continue
		}
		return se
	}
	return nil
}
