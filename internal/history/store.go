package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"releasekit/internal/config"
	"releasekit/internal/services"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	timeLayout = time.RFC3339Nano
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return services.Wrap(services.ErrValidation, "", "history", "run id is required", nil)
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, project, mode, repository, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Project, run.Mode, run.Repository, string(StatusRunning), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordArtifact attaches a released artifact to a run.
func (s *Store) RecordArtifact(ctx context.Context, runID string, artifact Artifact) error {
	if artifact.ReleasedAt.IsZero() {
		artifact.ReleasedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO artifacts (run_id, name, version, digest, size, path, released_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, artifact.Name, artifact.Version, artifact.Digest, artifact.Size, artifact.Path, formatTime(artifact.ReleasedAt),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// FinishRun stores the final status and error records of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, entries []ErrorEntry) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin finish tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
			string(status), formatTime(time.Now()), runID,
		)
		if err != nil {
			return fmt.Errorf("update run: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return services.Wrap(services.ErrNotFound, "", "history", "run "+runID, nil)
		}
		for _, entry := range entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_errors (run_id, phase, module, version, message) VALUES (?, ?, ?, ?, ?)`,
				runID, entry.Phase, entry.Module, entry.Version, entry.Message,
			); err != nil {
				return fmt.Errorf("insert run error: %w", err)
			}
		}
		return tx.Commit()
	})
}

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT r.id, r.project, r.mode, r.repository, r.status, r.started_at, r.finished_at,
		(SELECT COUNT(1) FROM artifacts a WHERE a.run_id = r.id),
		(SELECT COUNT(1) FROM run_errors e WHERE e.run_id = r.id)
		FROM runs r ORDER BY r.started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, true)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its artifacts and errors.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project, mode, repository, status, started_at, finished_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "", "history", "run "+id, nil)
	}
	if err != nil {
		return nil, err
	}

	artifacts, err := s.db.QueryContext(ctx,
		`SELECT name, version, digest, size, path, released_at FROM artifacts WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer artifacts.Close()
	for artifacts.Next() {
		var a Artifact
		var released string
		if err := artifacts.Scan(&a.Name, &a.Version, &a.Digest, &a.Size, &a.Path, &released); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.ReleasedAt = parseTime(released)
		run.Artifacts = append(run.Artifacts, a)
	}
	if err := artifacts.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	entries, err := s.db.QueryContext(ctx,
		`SELECT phase, module, version, message FROM run_errors WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list run errors: %w", err)
	}
	defer entries.Close()
	for entries.Next() {
		var e ErrorEntry
		if err := entries.Scan(&e.Phase, &e.Module, &e.Version, &e.Message); err != nil {
			return nil, fmt.Errorf("scan run error: %w", err)
		}
		run.Errors = append(run.Errors, e)
	}
	if err := entries.Err(); err != nil {
		return nil, fmt.Errorf("iterate run errors: %w", err)
	}
	run.ArtifactCount = len(run.Artifacts)
	run.ErrorCount = len(run.Errors)
	return &run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, counts bool) (Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
	)
	dest := []any{&run.ID, &run.Project, &run.Mode, &run.Repository, &status, &started, &finished}
	if counts {
		dest = append(dest, &run.ArtifactCount, &run.ErrorCount)
	}
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(started)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	return run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
