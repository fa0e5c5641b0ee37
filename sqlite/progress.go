package sqlite

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docchat.ProgressLog = (*ProgressLog)(nil)

// ProgressLog is an append-only log of progress events.
type ProgressLog struct {
	db     *DB
	logger *slog.Logger
}

// NewProgressLog creates a new ProgressLog. Write failures are reported to
// logger since Report cannot return them.
func NewProgressLog(db *DB, logger *slog.Logger) *ProgressLog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProgressLog{db: db, logger: logger}
}

// Report appends event to the log.
func (l *ProgressLog) Report(ctx context.Context, event docchat.ProgressEvent) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO progress_events (id, project_id, message, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), event.ProjectID, event.Message, formatTime(ts))
	if err != nil {
		l.logger.Warn("progress log write failed", "project", event.ProjectID, "err", err)
	}
}

// FindProgressEvents returns a project's events oldest first.
// A non-positive limit returns every event.
func (l *ProgressLog) FindProgressEvents(ctx context.Context, projectID string, limit int) ([]*docchat.ProgressEvent, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT project_id, message, created_at FROM progress_events WHERE project_id = ? ORDER BY seq`)
	args := []any{projectID}
	appendLimit(&query, &args, limit)

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*docchat.ProgressEvent
	for rows.Next() {
		var e docchat.ProgressEvent
		var createdAt string
		if err := rows.Scan(&e.ProjectID, &e.Message, &createdAt); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
