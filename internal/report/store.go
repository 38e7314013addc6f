// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report keeps a ledger of conversion runs in SQLite: one row per
// document conversion plus one row per image it contained.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/doc2text/pkg/types"
)

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 20

// ErrNotFound is returned by Run when no run matches.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned by Run when an id prefix matches several runs.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// Store manages the run ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			output_path TEXT,
			backend TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			pages INTEGER NOT NULL DEFAULT 0,
			images INTEGER NOT NULL DEFAULT 0,
			described INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			leftovers INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			page INTEGER,
			block INTEGER,
			path TEXT,
			status TEXT NOT NULL,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores run and its image outcomes. A run without an ID is
// assigned a new UUID, written back to run.ID.
func (s *Store) RecordRun(ctx context.Context, run *types.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, document, output_path, backend, started_at, finished_at,
			pages, images, described, failed, leftovers, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Document, run.OutputPath, run.Backend,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Pages, run.Images, run.Described, run.Failed, run.Leftovers,
		string(run.Status), run.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO images (run_id, seq, name, page, block, path, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx,
			run.ID, i, o.Name, o.Page, o.Block, o.Path, string(o.Status), o.Detail,
		); err != nil {
			return fmt.Errorf("inserting image %s: %w", o.Name, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, document, output_path, backend, started_at, finished_at,
	pages, images, described, failed, leftovers, status, error`

// ListRuns returns the most recent runs, newest first, without image
// outcomes. A limit <= 0 selects DefaultListLimit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the run whose id is id, or else the only run whose id starts
// with id, including image outcomes in document order.
func (s *Store) Run(ctx context.Context, id string) (types.RunRecord, error) {
	if id == "" {
		return types.RunRecord{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`,
		len(id), id, id)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("querying run %s: %w", id, err)
	}
	var matches []types.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return types.RunRecord{}, err
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return types.RunRecord{}, fmt.Errorf("querying run %s: %w", id, err)
	}

	switch {
	case len(matches) == 0:
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}

	run := matches[0]
	run.Outcomes, err = s.outcomes(ctx, run.ID)
	if err != nil {
		return types.RunRecord{}, err
	}
	return run, nil
}

func (s *Store) outcomes(ctx context.Context, runID string) ([]types.ImageOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, page, block, path, status, detail FROM images WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying images for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.ImageOutcome
	for rows.Next() {
		var o types.ImageOutcome
		var path, status, detail sql.NullString
		if err := rows.Scan(&o.Name, &o.Page, &o.Block, &path, &status, &detail); err != nil {
			return nil, fmt.Errorf("scanning image row: %w", err)
		}
		o.Path = path.String
		o.Status = types.ImageStatus(status.String)
		o.Detail = detail.String
		out = append(out, o)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (types.RunRecord, error) {
	var r types.RunRecord
	var outputPath, backend, errText sql.NullString
	var started, finished, status string
	if err := sc.Scan(&r.ID, &r.Document, &outputPath, &backend, &started, &finished,
		&r.Pages, &r.Images, &r.Described, &r.Failed, &r.Leftovers, &status, &errText); err != nil {
		return types.RunRecord{}, fmt.Errorf("scanning run row: %w", err)
	}
	r.OutputPath = outputPath.String
	r.Backend = backend.String
	r.Error = errText.String
	r.Status = types.RunStatus(status)

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return types.RunRecord{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return types.RunRecord{}, fmt.Errorf("run %s: %w", r.ID, err)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
