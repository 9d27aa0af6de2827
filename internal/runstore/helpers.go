package runstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const selectRuns = `SELECT id, prompt, status, stage, error_kind, error_message, render_attempts, strategy,
    video_seconds, audio_seconds, artifact_path, archive_url, created_at, updated_at, finished_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                                           Run
		status                                        string
		stage, kind, message, strategy, artifact, url sql.NullString
		created, updated                              string
		finished                                      sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Prompt, &status, &stage, &kind, &message, &run.RenderAttempts, &strategy,
		&run.VideoSeconds, &run.AudioSeconds, &artifact, &url, &created, &updated, &finished); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Stage = stage.String
	run.ErrorKind = kind.String
	run.ErrorMessage = message.String
	run.Strategy = strategy.String
	run.ArtifactPath = artifact.String
	run.ArchiveURL = url.String
	run.CreatedAt = parseTime(created)
	run.UpdatedAt = parseTime(updated)
	run.FinishedAt = parseTime(finished.String)
	return &run, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

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
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
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
