// Package sqlite provides a SQLite-backed implementation of the run repository port.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously
	"github.com/ooi-data/ooi-hyd-tools/internal/core/domain"
	"github.com/ooi-data/ooi-hyd-tools/internal/core/ports"
)

// fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Adapter implements ports.RunRepository for SQLite
type Adapter struct {
	db *sql.DB
}

var _ ports.RunRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to ping db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite: migration failed: %w", err)
	}
	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// SaveRun upserts a run and replaces its manifest lines.
func (a *Adapter) SaveRun(ctx context.Context, run domain.RunRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, refdes, day, encoding, sample_rate, duration_ms, jitter_tolerance, gap_tolerance,
			concurrency, status, attempts, error, started_at, finished_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			attempts=excluded.attempts,
			error=excluded.error,
			finished_at=excluded.finished_at;
	`,
		run.ID,
		run.RefDes,
		run.Day.Format(domain.DayLayout),
		string(run.Encoding),
		run.Params.SampleRate,
		run.Params.Duration.Milliseconds(),
		run.Params.JitterTolerance,
		run.Params.GapTolerance,
		run.Concurrency,
		string(run.Status),
		run.Attempts,
		run.Error,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	); err != nil {
		return fmt.Errorf("sqlite: failed to save run %s: %w", run.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_entries WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("sqlite: failed to clear entries of run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_entries (
			run_id, position, url, nominal_start, status, seg_start, seg_end, sample_count,
			trace_count, repair_path, reason, error, artifact
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		if _, err := stmt.ExecContext(
			ctx,
			run.ID,
			e.Position,
			e.URL,
			formatTime(e.NominalStart),
			string(e.Status),
			formatTime(e.Start),
			formatTime(e.End),
			e.SampleCount,
			e.TraceCount,
			string(e.Path),
			e.Reason,
			e.Error,
			e.Artifact,
		); err != nil {
			return fmt.Errorf("sqlite: failed to save entry %d of run %s: %w", e.Position, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: transaction commit failed: %w", err)
	}
	return nil
}

// GetRun loads a run with its manifest lines.
func (a *Adapter) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	row := a.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunRecord{}, fmt.Errorf("%w: run %s", domain.ErrNotFound, id)
		}
		return domain.RunRecord{}, fmt.Errorf("sqlite: failed to load run %s: %w", id, err)
	}
	if run.Entries, err = a.entries(ctx, id); err != nil {
		return domain.RunRecord{}, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first, optionally for one
// reference designator only.
func (a *Adapter) ListRuns(ctx context.Context, refdes string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := selectRuns
	args := []any{}
	if refdes != "" {
		query += " WHERE refdes = ?"
		args = append(args, refdes)
	}
	query += " ORDER BY started_at DESC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list runs: %w", err)
	}
	var runs []domain.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: failed to iterate runs: %w", err)
	}
	rows.Close()

	// entries are loaded after the cursor is closed; the pool has one connection
	for i := range runs {
		if runs[i].Entries, err = a.entries(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

const selectRuns = `
	SELECT id, refdes, day, encoding, sample_rate, duration_ms, jitter_tolerance, gap_tolerance,
		concurrency, status, attempts, IFNULL(error, ''), started_at, IFNULL(finished_at, '')
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (domain.RunRecord, error) {
	var (
		run                   domain.RunRecord
		day, encoding         string
		status                string
		durationMs            int64
		startedAt, finishedAt string
	)
	if err := s.Scan(
		&run.ID,
		&run.RefDes,
		&day,
		&encoding,
		&run.Params.SampleRate,
		&durationMs,
		&run.Params.JitterTolerance,
		&run.Params.GapTolerance,
		&run.Concurrency,
		&status,
		&run.Attempts,
		&run.Error,
		&startedAt,
		&finishedAt,
	); err != nil {
		return domain.RunRecord{}, err
	}
	var err error
	if run.Day, err = domain.ParseDay(day); err != nil {
		return domain.RunRecord{}, err
	}
	run.Encoding = domain.Encoding(encoding)
	run.Status = domain.RunStatus(status)
	run.Params.Duration = time.Duration(durationMs) * time.Millisecond
	run.StartedAt = parseTime(startedAt)
	run.FinishedAt = parseTime(finishedAt)
	return run, nil
}

func (a *Adapter) entries(ctx context.Context, runID string) ([]domain.RunEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT position, url, nominal_start, status, IFNULL(seg_start, ''), IFNULL(seg_end, ''),
			sample_count, trace_count, IFNULL(repair_path, ''), IFNULL(reason, ''),
			IFNULL(error, ''), IFNULL(artifact, '')
		FROM run_entries
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load entries of run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []domain.RunEntry
	for rows.Next() {
		var (
			e                   domain.RunEntry
			nominal, start, end string
			status, path        string
		)
		if err := rows.Scan(
			&e.Position,
			&e.URL,
			&nominal,
			&status,
			&start,
			&end,
			&e.SampleCount,
			&e.TraceCount,
			&path,
			&e.Reason,
			&e.Error,
			&e.Artifact,
		); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan entry of run %s: %w", runID, err)
		}
		e.NominalStart = parseTime(nominal)
		e.Start = parseTime(start)
		e.End = parseTime(end)
		e.Status = domain.Status(status)
		e.Path = domain.RepairPath(path)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate entries of run %s: %w", runID, err)
	}
	return entries, nil
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		refdes TEXT NOT NULL,
		day TEXT NOT NULL,
		encoding TEXT NOT NULL,
		sample_rate REAL NOT NULL,
		duration_ms INTEGER NOT NULL,
		jitter_tolerance INTEGER NOT NULL,
		gap_tolerance REAL NOT NULL,
		concurrency INTEGER NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS runs_refdes_day ON runs (refdes, day);

	CREATE TABLE IF NOT EXISTS run_entries (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		nominal_start TEXT NOT NULL,
		status TEXT NOT NULL,
		seg_start TEXT,
		seg_end TEXT,
		sample_count INTEGER NOT NULL DEFAULT 0,
		trace_count INTEGER NOT NULL DEFAULT 0,
		repair_path TEXT,
		reason TEXT,
		error TEXT,
		artifact TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := a.db.Exec(query)
	return err
}
