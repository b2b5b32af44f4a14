// Package telemetry records command invocations in a local sqlite database
// when the user has telemetry enabled. Recording is best-effort: a missing
// or broken database never fails a pipeline.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"database/sql"

	_ "modernc.org/sqlite"
)

// Invocation is one recorded command run.
type Invocation struct {
	Command    string
	Repository string
	OK         bool
	Duration   time.Duration
	At         time.Time
}

// CommandStats aggregates invocations per command.
type CommandStats struct {
	Command     string
	Total       int
	Failures    int
	AvgDuration time.Duration
}

// Store is the sqlite-backed invocation log.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database location under the XDG state dir.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "dm", "telemetry.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "dm-telemetry.db"
	}
	return filepath.Join(home, ".local", "state", "dm", "telemetry.db")
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS invocations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	command TEXT NOT NULL,
	repository TEXT NOT NULL DEFAULT '',
	ok INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_command ON invocations(command);
`); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying telemetry schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record logs one invocation.
func (s *Store) Record(ctx context.Context, inv Invocation) error {
	if s == nil || s.db == nil {
		return errors.New("telemetry store not open")
	}
	if inv.At.IsZero() {
		inv.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO invocations(command, repository, ok, duration_ms, at)
VALUES (?, ?, ?, ?, ?)`,
		inv.Command, inv.Repository, boolInt(inv.OK), inv.Duration.Milliseconds(),
		inv.At.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording invocation: %w", err)
	}
	return nil
}

// Stats aggregates the recorded invocations per command, most used first.
func (s *Store) Stats(ctx context.Context) ([]CommandStats, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("telemetry store not open")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT command, COUNT(*), SUM(1 - ok), AVG(duration_ms)
FROM invocations GROUP BY command ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	defer rows.Close()

	var out []CommandStats
	for rows.Next() {
		var cs CommandStats
		var avgMs float64
		if err := rows.Scan(&cs.Command, &cs.Total, &cs.Failures, &avgMs); err != nil {
			return nil, err
		}
		cs.AvgDuration = time.Duration(avgMs) * time.Millisecond
		out = append(out, cs)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
