// Package store persists batch run results in a SQLite ledger: one row per
// run, one per task outcome, plus per-component token usage.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"rtlforge/internal/llm"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	benchmark    TEXT NOT NULL,
	task_filter  TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   INTEGER NOT NULL,
	completed_at INTEGER
);

CREATE TABLE IF NOT EXISTS task_results (
	run_id       TEXT NOT NULL REFERENCES runs(run_id),
	task_id      TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	mismatches   INTEGER NOT NULL,
	error_msg    TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, task_id)
);

CREATE TABLE IF NOT EXISTS token_usage (
	run_id            TEXT NOT NULL REFERENCES runs(run_id),
	task_id           TEXT NOT NULL,
	tag               TEXT NOT NULL,
	calls             INTEGER NOT NULL,
	prompt_tokens     INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens      INTEGER NOT NULL,
	PRIMARY KEY (run_id, task_id, tag)
);

CREATE TABLE IF NOT EXISTS ambiguity_results (
	run_id         TEXT NOT NULL REFERENCES runs(run_id),
	task_id        TEXT NOT NULL,
	classification TEXT NOT NULL,
	fix_iters      INTEGER NOT NULL,
	PRIMARY KEY (run_id, task_id)
);
`

// Store is the run ledger. Safe for use from a single batch runner; the
// busy timeout covers concurrent readers.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := db.Exec(latencySchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun inserts a run row in the running state.
func (s *Store) CreateRun(runID, benchmark, taskFilter string) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, benchmark, task_filter, status, started_at)
		VALUES (?, ?, ?, 'running', ?)
	`, runID, benchmark, taskFilter, time.Now().Unix())
	return err
}

// CompleteRun closes a run row with its final status.
func (s *Store) CompleteRun(runID, status string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, completed_at = ? WHERE run_id = ?
	`, status, time.Now().Unix(), runID)
	return err
}

// TaskResult is one task's outcome within a run.
type TaskResult struct {
	TaskID     string
	Passed     bool
	Mismatches int
	ErrorMsg   string
}

// RecordTask inserts a task outcome row.
func (s *Store) RecordTask(runID string, r TaskResult) error {
	_, err := s.db.Exec(`
		INSERT INTO task_results (run_id, task_id, passed, mismatches, error_msg, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, r.TaskID, r.Passed, r.Mismatches, r.ErrorMsg, time.Now().Unix())
	return err
}

// TaskResults returns the outcomes of a run ordered by task ID.
func (s *Store) TaskResults(runID string) ([]TaskResult, error) {
	rows, err := s.db.Query(`
		SELECT task_id, passed, mismatches, error_msg
		FROM task_results WHERE run_id = ? ORDER BY task_id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TaskResult
	for rows.Next() {
		var r TaskResult
		if err := rows.Scan(&r.TaskID, &r.Passed, &r.Mismatches, &r.ErrorMsg); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RecordUsage persists one component tag's token counts for a task.
func (s *Store) RecordUsage(runID, taskID, tag string, calls int, u llm.Usage) error {
	_, err := s.db.Exec(`
		INSERT INTO token_usage (run_id, task_id, tag, calls, prompt_tokens, completion_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, taskID, tag, calls, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	return err
}

// RecordMeter dumps every tag of the meter for a task.
func (s *Store) RecordMeter(runID, taskID string, meter *llm.Meter) error {
	for tag, usage := range meter.ByTag() {
		if err := s.RecordUsage(runID, taskID, tag, meter.Calls(tag), usage); err != nil {
			return err
		}
	}
	return nil
}

// TotalUsage sums token usage across all tasks and tags of a run.
func (s *Store) TotalUsage(runID string) (llm.Usage, error) {
	var u llm.Usage
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0), COALESCE(SUM(total_tokens), 0)
		FROM token_usage WHERE run_id = ?
	`, runID).Scan(&u.PromptTokens, &u.CompletionTokens, &u.TotalTokens)
	return u, err
}

// RecordAmbiguity persists one spec's trip through the classify-fix loop.
func (s *Store) RecordAmbiguity(runID, taskID, classification string, fixIters int) error {
	_, err := s.db.Exec(`
		INSERT INTO ambiguity_results (run_id, task_id, classification, fix_iters)
		VALUES (?, ?, ?, ?)
	`, runID, taskID, classification, fixIters)
	return err
}

// AmbiguityStats aggregates one run's classify-fix outcomes.
type AmbiguityStats struct {
	Total     int
	Ambiguous int
	Fixed     int
}

// GetAmbiguityStats computes the summary counters for a run. A spec counts
// as ambiguous when its initial classification said so, and as fixed when
// it entered at least one fix iteration.
func (s *Store) GetAmbiguityStats(runID string) (AmbiguityStats, error) {
	var st AmbiguityStats
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN classification = 'ambiguous' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN fix_iters > 0 THEN 1 ELSE 0 END), 0)
		FROM ambiguity_results WHERE run_id = ?
	`, runID).Scan(&st.Total, &st.Ambiguous, &st.Fixed)
	return st, err
}
