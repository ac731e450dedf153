package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"animforge/internal/pipeline"
	"animforge/internal/services"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Error stages recorded in run_errors.
const (
	StageValidation = "validation"
	StageTrial      = "trial_render"
)

// Run is a persisted pipeline run.
type Run struct {
	ID                 string       `json:"id"`
	Label              string       `json:"label,omitempty"`
	SceneID            string       `json:"scene_id,omitempty"`
	Status             string       `json:"status"`
	FailureStage       string       `json:"failure_stage"`
	ErrorMessage       string       `json:"error,omitempty"`
	ArtifactPath       string       `json:"artifact_path,omitempty"`
	ValidationAttempts int          `json:"validation_attempts"`
	RenderAttempts     int          `json:"render_attempts"`
	RepairCalls        int          `json:"repair_calls"`
	Source             string       `json:"source,omitempty"`
	StartedAt          time.Time    `json:"started_at"`
	FinishedAt         time.Time    `json:"finished_at"`
	Errors             []AttemptErr `json:"errors,omitempty"`
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// AttemptErr is one failed attempt of a run.
type AttemptErr struct {
	Stage        string `json:"stage"`
	Attempt      int    `json:"attempt"`
	Message      string `json:"message"`
	CodeSnapshot string `json:"code_snapshot,omitempty"`
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

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

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Record stores a pipeline report. It satisfies pipeline.Recorder.
func (s *Store) Record(ctx context.Context, report pipeline.Report) error {
	status := StatusFailed
	if report.Succeeded() {
		status = StatusSucceeded
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `INSERT INTO runs (
			id, label, scene_id, status, failure_stage, error_message, artifact_path,
			validation_attempts, render_attempts, repair_calls, source, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			nullableString(report.Label),
			nullableString(report.SceneID),
			status,
			services.FailureStage(report.Err),
			nullableString(report.ErrorMessage()),
			nullableString(report.ArtifactPath),
			report.ValidationAttempts,
			report.RenderAttempts,
			report.RepairCalls,
			nullableString(report.Source),
			formatTime(report.StartedAt),
			formatTime(report.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, rec := range report.ValidationHistory {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO run_errors (run_id, stage, attempt, message, code_snapshot) VALUES (?, ?, ?, ?, ?)",
				report.RunID, StageValidation, rec.Attempt, rec.Error, nullableString(rec.CodeSnapshot),
			); err != nil {
				return fmt.Errorf("insert validation error: %w", err)
			}
		}
		for _, rec := range report.RenderHistory {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO run_errors (run_id, stage, attempt, message) VALUES (?, ?, ?, ?)",
				report.RunID, StageTrial, rec.Attempt, rec.Diagnostic,
			); err != nil {
				return fmt.Errorf("insert trial error: %w", err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `id, label, scene_id, status, failure_stage, error_message, artifact_path,
	validation_attempts, render_attempts, repair_calls, source, started_at, finished_at`

// List returns the most recent runs, newest first. limit <= 0 means 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get returns a run with its attempt errors. id may be a unique prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2", id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	var run *Run
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) == 1:
		run = matches[0]
	default:
		for _, m := range matches {
			if m.ID == id {
				run = m
			}
		}
		if run == nil {
			return nil, fmt.Errorf("ambiguous run id prefix %q", id)
		}
	}

	errRows, err := s.db.QueryContext(ctx,
		"SELECT stage, attempt, message, code_snapshot FROM run_errors WHERE run_id = ? ORDER BY stage = 'trial_render', attempt", run.ID)
	if err != nil {
		return nil, fmt.Errorf("get run errors: %w", err)
	}
	defer errRows.Close()
	for errRows.Next() {
		var (
			rec      AttemptErr
			snapshot sql.NullString
		)
		if err := errRows.Scan(&rec.Stage, &rec.Attempt, &rec.Message, &snapshot); err != nil {
			return nil, fmt.Errorf("scan run error: %w", err)
		}
		rec.CodeSnapshot = snapshot.String
		run.Errors = append(run.Errors, rec)
	}
	if err := errRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run errors: %w", err)
	}
	return run, nil
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		stamp := formatTime(cutoff)
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM run_errors WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", stamp); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", stamp)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run                                   Run
		label, sceneID, errMsg, artifact, src sql.NullString
		startedRaw, finishedRaw               string
	)
	if err := scanner.Scan(
		&run.ID, &label, &sceneID, &run.Status, &run.FailureStage, &errMsg, &artifact,
		&run.ValidationAttempts, &run.RenderAttempts, &run.RepairCalls, &src, &startedRaw, &finishedRaw,
	); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Label = label.String
	run.SceneID = sceneID.String
	run.ErrorMessage = errMsg.String
	run.ArtifactPath = artifact.String
	run.Source = src.String
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if t, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = t
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// Fixed-width timestamps keep lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
