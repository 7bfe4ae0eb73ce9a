// Package eventstore persists build records so serve mode can answer
// history queries across restarts.
package eventstore

import (
	"context"
	"time"
)

// Record is one persisted build.
type Record struct {
	ID        int64         `json:"id"`
	BuildID   string        `json:"build_id"`
	Outcome   string        `json:"outcome"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`

	PagesRendered int `json:"pages_rendered"`
	PagesReused   int `json:"pages_reused"`

	// Report is the full build report as JSON.
	Report []byte `json:"report,omitempty"`
}

// Store persists and retrieves build records.
type Store interface {
	// Append stores one completed build.
	Append(ctx context.Context, rec Record) error

	// Recent returns the newest builds, most recent first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// GetByBuildID retrieves one build by its identifier.
	GetByBuildID(ctx context.Context, buildID string) (*Record, error)

	// Close releases resources.
	Close() error
}
