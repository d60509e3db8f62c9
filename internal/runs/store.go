package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"amuza/internal/config"
)

// ErrNotFound indicates no run exists with the requested ID.
var ErrNotFound = errors.New("run not found")

// StopReason is the error message recorded when a run is stopped by the
// operator.
const StopReason = "Stop requested by user"

// ShutdownReason is the error message recorded when active runs are
// failed because the daemon shut down.
const ShutdownReason = "Daemon stopped"

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return openPath(filepath.Join(cfg.Paths.LogDir, "runs.db"))
}

func openPath(dbPath string) (*Store, error) {
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

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

const runColumns = "id, kind, wells, sampling_seconds, buffer_seconds, status, error_message, created_at, started_at, finished_at"

// Create records a new pending run and returns it.
func (s *Store) Create(ctx context.Context, kind Kind, wells string, samplingSeconds, bufferSeconds int) (Run, error) {
	run := Run{
		ID:              uuid.NewString(),
		Kind:            kind,
		Wells:           wells,
		SamplingSeconds: samplingSeconds,
		BufferSeconds:   bufferSeconds,
		Status:          StatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO runs (`+runColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', '')`,
		run.ID, string(run.Kind), run.Wells, run.SamplingSeconds, run.BufferSeconds,
		string(run.Status), run.ErrorMessage, formatTime(run.CreatedAt))
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// MarkRunning transitions a run to running and stamps its start time.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusRunning, "", "started_at")
}

// MarkCompleted transitions a run to completed.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusCompleted, "", "finished_at")
}

// MarkFailed transitions a run to failed with an error message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.transition(ctx, id, StatusFailed, message, "finished_at")
}

// MarkStopped transitions a run to stopped.
func (s *Store) MarkStopped(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusStopped, StopReason, "finished_at")
}

func (s *Store) transition(ctx context.Context, id string, status Status, message, stampColumn string) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown run status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error_message = ?, "+stampColumn+" = ? WHERE id = ?",
		string(status), message, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// FailActive marks all pending and running runs as failed. Called on
// daemon startup to clean up after an unclean shutdown, and on shutdown
// for runs interrupted by it.
func (s *Store) FailActive(ctx context.Context, message string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status IN (?, ?)",
		string(StatusFailed), message, formatTime(time.Now().UTC()),
		string(StatusPending), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("fail active runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail active runs: %w", err)
	}
	return int(affected), nil
}

// GetByID returns one run.
func (s *Store) GetByID(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first. A limit of zero or
// below returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Health aggregates run counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM runs GROUP BY status")
	if err != nil {
		return HealthSummary{}, fmt.Errorf("count runs: %w", err)
	}
	defer rows.Close()

	health := HealthSummary{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan run count: %w", err)
		}
		health.Total += count
		switch Status(status) {
		case StatusPending:
			health.Pending += count
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		case StatusStopped:
			health.Stopped += count
		}
	}
	return health, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		kind     string
		status   string
		created  string
		started  string
		finished string
	)
	err := row.Scan(&run.ID, &kind, &run.Wells, &run.SamplingSeconds, &run.BufferSeconds,
		&status, &run.ErrorMessage, &created, &started, &finished)
	if err != nil {
		return Run{}, err
	}
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.CreatedAt = parseTime(created)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
