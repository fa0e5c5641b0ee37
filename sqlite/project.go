package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.ProjectService = (*ProjectService)(nil)

// ProjectService implements docchat.ProjectService using SQLite.
type ProjectService struct {
	db *DB
}

// NewProjectService creates a new ProjectService.
func NewProjectService(db *DB) *ProjectService {
	return &ProjectService{db: db}
}

// CreateProject creates a new project. Status defaults to pending.
// Returns ECONFLICT if a project with the same ID exists.
func (s *ProjectService) CreateProject(ctx context.Context, project *docchat.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	if project.Status == "" {
		project.Status = docchat.ProjectPending
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, source_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, project.ID, project.SourceURL, string(project.Status), formatTime(now), formatTime(now))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return docchat.Errorf(docchat.ECONFLICT, "project %q already exists", project.ID)
	}
	return nil
}

// FindProjectByID retrieves a project by ID.
func (s *ProjectService) FindProjectByID(ctx context.Context, id string) (*docchat.Project, error) {
	var project docchat.Project
	var status, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_url, status, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id).Scan(&project.ID, &project.SourceURL, &status, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "project not found")
	}
	if err != nil {
		return nil, err
	}

	project.Status = docchat.ProjectStatus(status)
	if project.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if project.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &project, nil
}

// SetProjectStatus updates the status of a project.
func (s *ProjectService) SetProjectStatus(ctx context.Context, id string, status docchat.ProjectStatus) error {
	if !status.Valid() {
		return docchat.Errorf(docchat.EINVALID, "unknown project status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return docchat.Errorf(docchat.ENOTFOUND, "project not found")
	}
	return nil
}
