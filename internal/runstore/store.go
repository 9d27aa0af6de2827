package runstore

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

	"scenecast/internal/config"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultListLimit        = 20
)

// Open connects to the run database configured in cfg, creating it on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.RunStorePath())
}

// OpenPath connects to the database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create records a new running run.
func (s *Store) Create(ctx context.Context, id, prompt string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("run id required")
	}
	now := formatTime(time.Now())
	if err := s.exec(ctx,
		`INSERT INTO runs (id, prompt, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, prompt, StatusRunning, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateStage records the stage a running run has entered.
func (s *Store) UpdateStage(ctx context.Context, id, stage string) error {
	return s.update(ctx, id,
		`UPDATE runs SET stage = ?, updated_at = ? WHERE id = ?`,
		stage, formatTime(time.Now()), id,
	)
}

// Complete marks a run succeeded.
func (s *Store) Complete(ctx context.Context, id string, outcome Outcome) error {
	now := formatTime(time.Now())
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, stage = NULL, error_kind = NULL, error_message = NULL,
            render_attempts = ?, strategy = ?, video_seconds = ?, audio_seconds = ?,
            artifact_path = ?, archive_url = ?, updated_at = ?, finished_at = ?
        WHERE id = ?`,
		StatusSucceeded, outcome.RenderAttempts, nullableString(outcome.Strategy),
		outcome.VideoSeconds, outcome.AudioSeconds, nullableString(outcome.ArtifactPath),
		nullableString(outcome.ArchiveURL), now, now, id,
	)
}

// Fail marks a run failed at stage with a classified error.
func (s *Store) Fail(ctx context.Context, id, stage, kind, message string) error {
	now := formatTime(time.Now())
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, stage = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE id = ?`,
		StatusFailed, nullableString(stage), nullableString(kind), nullableString(message), now, now, id,
	)
}

// Get fetches one run.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 uses a default.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), selectRuns+` ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Stats counts runs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("run stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// MarkAbandoned fails runs left running by a process that exited without
// recording an outcome. It returns the number of rows changed.
func (s *Store) MarkAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))
	now := formatTime(time.Now())
	var affected int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(ensureContext(ctx),
			`UPDATE runs SET status = ?, error_kind = 'abandoned', error_message = 'process exited before the run finished',
                updated_at = ?, finished_at = ?
            WHERE status = ? AND updated_at < ?`,
			StatusFailed, now, now, StatusRunning, cutoff,
		)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	return affected, nil
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	var affected int64
	err := retryOnBusy(ensureContext(ctx), func() error {
		res, err := s.db.ExecContext(ensureContext(ctx), query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
