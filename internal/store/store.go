// Package store implements the durable Workflow Store: a single-file
// embedded relational store surviving daemon restarts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	log       TEXT NOT NULL DEFAULT '',
	jobs_blob BLOB NOT NULL UNIQUE,
	submitted DATETIME NOT NULL,
	completed DATETIME,
	priority  INTEGER NOT NULL DEFAULT 0,
	status    TEXT NOT NULL
);
`

// Row is one durable workflow record.
type Row struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Log       string     `db:"log"`
	JobsBlob  []byte     `db:"jobs_blob"`
	Submitted time.Time  `db:"submitted"`
	Completed *time.Time `db:"completed"`
	Priority  int        `db:"priority"`
	Status    string     `db:"status"`
}

// Store is the embedded-SQLite-backed Workflow Store.
type Store struct {
	db *sqlx.DB
}

// Open creates (if necessary) and opens the database file at path, with
// WAL journaling and a bounded busy timeout so local writes never block
// the event loop for long.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single event-loop thread owns this connection

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// AddWorkflow inserts a new row and returns its assigned id. A
// uniqueness violation on jobs_blob is silently ignored; the caller is
// expected to have already checked FindWorkflow.
func (s *Store) AddWorkflow(name, log string, jobsBlob []byte, priority int, wstatus string) (int64, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO workflows (name, log, jobs_blob, submitted, priority, status) VALUES (?, ?, ?, ?, ?, ?)`,
		name, log, jobsBlob, time.Now(), priority, wstatus,
	)
	if err != nil {
		return 0, fmt.Errorf("store: add workflow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: add workflow: %w", err)
	}
	return id, nil
}

// FindWorkflow looks up a row by its canonical jobs blob, returning
// (nil, nil) when there is no match.
func (s *Store) FindWorkflow(jobsBlob []byte) (*Row, error) {
	var row Row
	err := s.db.Get(&row, `SELECT * FROM workflows WHERE jobs_blob = ?`, jobsBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find workflow: %w", err)
	}
	return &row, nil
}

// GetWorkflow looks up a row by id, returning (nil, nil) on a miss.
func (s *Store) GetWorkflow(id int64) (*Row, error) {
	var row Row
	err := s.db.Get(&row, `SELECT * FROM workflows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get workflow: %w", err)
	}
	return &row, nil
}

// UpdateWorkflow rewrites the mutable submission fields of an existing
// row (used when a resubmit lands on an existing row, found by id or by
// jobs blob).
func (s *Store) UpdateWorkflow(id int64, name, log string, jobsBlob []byte, priority int) error {
	_, err := s.db.Exec(
		`UPDATE workflows SET name = ?, log = ?, jobs_blob = ?, priority = ? WHERE id = ?`,
		name, log, jobsBlob, priority, id,
	)
	if err != nil {
		return fmt.Errorf("store: update workflow: %w", err)
	}
	return nil
}

// UpdateStatus transitions a row's status, stamping completion time when
// completed is true.
func (s *Store) UpdateStatus(id int64, wstatus string, completed bool) error {
	var err error
	if completed {
		_, err = s.db.Exec(`UPDATE workflows SET status = ?, completed = ? WHERE id = ?`, wstatus, time.Now(), id)
	} else {
		_, err = s.db.Exec(`UPDATE workflows SET status = ? WHERE id = ?`, wstatus, id)
	}
	if err != nil {
		return fmt.Errorf("store: update status: %w", err)
	}
	return nil
}

// GetStatus returns the persisted status string for id.
func (s *Store) GetStatus(id int64) (string, error) {
	var wstatus string
	err := s.db.Get(&wstatus, `SELECT status FROM workflows WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get status: %w", err)
	}
	return wstatus, nil
}

// Summary is one entry of a Fetch listing.
type Summary struct {
	ID        int64      `db:"id"`
	Name      string     `db:"name"`
	Submitted time.Time  `db:"submitted"`
	Completed *time.Time `db:"completed"`
	Status    string     `db:"status"`
	Priority  int        `db:"priority"`
}

// Fetch lists workflow summaries, restricted to ids when non-empty.
func (s *Store) Fetch(ids []int64) ([]Summary, error) {
	var (
		rows []Summary
		err  error
	)
	if len(ids) == 0 {
		err = s.db.Select(&rows, `SELECT id, name, submitted, completed, status, priority FROM workflows ORDER BY id`)
	} else {
		query, args, buildErr := sqlx.In(`SELECT id, name, submitted, completed, status, priority FROM workflows WHERE id IN (?) ORDER BY id`, ids)
		if buildErr != nil {
			return nil, fmt.Errorf("store: fetch: %w", buildErr)
		}
		query = s.db.Rebind(query)
		err = s.db.Select(&rows, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("store: fetch: %w", err)
	}
	return rows, nil
}

// StopWorkflows performs the startup-recovery blanket transition:
// every row still marked Running is flipped to Stopped.
func (s *Store) StopWorkflows(stoppedStatus string) error {
	_, err := s.db.Exec(`UPDATE workflows SET status = ?, completed = ? WHERE status = ?`, stoppedStatus, time.Now(), "Running")
	if err != nil {
		return fmt.Errorf("store: stop workflows: %w", err)
	}
	return nil
}
