// Package runstore persists run snapshots to SQLite so finished and
// in-flight runs can be inspected after the fact.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/research-assistant/internal/workflow"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	topic       TEXT NOT NULL,
	current_step TEXT NOT NULL,
	state       TEXT NOT NULL,
	report      TEXT NOT NULL DEFAULT '',
	error_count INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// Store is a write-through snapshot store: one row per run, overwritten on
// every stage transition.
type Store struct {
	db *sqlx.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the current snapshot of a run.
func (s *Store) Save(ctx context.Context, state *workflow.RunState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, topic, current_step, state, report, error_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			current_step = excluded.current_step,
			state        = excluded.state,
			report       = excluded.report,
			error_count  = excluded.error_count,
			updated_at   = excluded.updated_at`,
		state.RunID, state.Topic, string(state.CurrentStep), string(blob),
		state.Report.Markdown, len(state.Errors),
		state.CreatedAt.UTC().Format(time.RFC3339Nano),
		state.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run %s: %w", state.RunID, err)
	}
	return nil
}

// Get loads the latest snapshot of one run.
func (s *Store) Get(ctx context.Context, runID string) (*workflow.RunState, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM runs WHERE run_id = ?", runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	var state workflow.RunState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", runID, err)
	}
	return &state, nil
}

// Summary is one row of the run listing.
type Summary struct {
	RunID       string    `db:"run_id" json:"run_id"`
	Topic       string    `db:"topic" json:"topic"`
	CurrentStep string    `db:"current_step" json:"current_step"`
	ErrorCount  int       `db:"error_count" json:"error_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List returns run summaries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, topic, current_step, error_count, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		var created, updated string
		if err := rows.Scan(&sm.RunID, &sm.Topic, &sm.CurrentStep, &sm.ErrorCount, &created, &updated); err != nil {
			return nil, err
		}
		sm.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		sm.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, sm)
	}
	return out, rows.Err()
}
