package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the store at dbPath. Use ":memory:"
// for an in-memory store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		outcome TEXT NOT NULL,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		pages_rendered INTEGER NOT NULL,
		pages_reused INTEGER NOT NULL,
		report BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	CREATE INDEX IF NOT EXISTS idx_builds_outcome ON builds(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one completed build.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, outcome, started, duration_ms, pages_rendered, pages_reused, report) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.BuildID, rec.Outcome, rec.StartTime.Unix(), rec.Duration.Milliseconds(),
		rec.PagesRendered, rec.PagesReused, rec.Report,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// Recent returns the newest builds, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, outcome, started, duration_ms, pages_rendered, pages_reused, report FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// GetByBuildID retrieves one build by its identifier.
func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, outcome, started, duration_ms, pages_rendered, pages_reused, report FROM builds WHERE build_id = ?",
		buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("query build: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var rec Record
		var startedUnix, durationMS int64

		err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Outcome, &startedUnix, &durationMS,
			&rec.PagesRendered, &rec.PagesReused, &rec.Report)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		rec.StartTime = time.Unix(startedUnix, 0)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
