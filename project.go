package docchat

import (
	"context"
	"time"
)

// ProjectStatus tracks whether a project's knowledge base is ready.
type ProjectStatus string

// Project statuses.
const (
	ProjectPending ProjectStatus = "pending"
	ProjectCreated ProjectStatus = "created"
	ProjectFailed  ProjectStatus = "failed"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectCreated, ProjectFailed:
		return true
	}
	return false
}

// Project is a tenant-scoped website whose pages back a knowledge base.
type Project struct {
	ID        string        `json:"id"`
	SourceURL string        `json:"sourceUrl"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Validate returns an error if the project contains invalid fields.
func (p *Project) Validate() error {
	if p.ID == "" {
		return Errorf(EINVALID, "project ID required")
	}
	if p.SourceURL == "" {
		return Errorf(EINVALID, "project source URL required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return Errorf(EINVALID, "unknown project status %q", p.Status)
	}
	return nil
}

// ProjectService represents a service for managing projects.
type ProjectService interface {
	// CreateProject creates a new project in the pending state unless a
	// status is already set.
	CreateProject(ctx context.Context, project *Project) error

	// FindProjectByID retrieves a project by ID.
	// Returns ENOTFOUND if project does not exist.
	FindProjectByID(ctx context.Context, id string) (*Project, error)

	// SetProjectStatus updates the status of a project.
	// Returns ENOTFOUND if project does not exist.
	SetProjectStatus(ctx context.Context, id string, status ProjectStatus) error
}
