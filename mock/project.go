package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.ProjectService = (*ProjectService)(nil)

// ProjectService is a mock implementation of docchat.ProjectService.
type ProjectService struct {
	CreateProjectFn    func(ctx context.Context, project *docchat.Project) error
	FindProjectByIDFn  func(ctx context.Context, id string) (*docchat.Project, error)
	SetProjectStatusFn func(ctx context.Context, id string, status docchat.ProjectStatus) error
}

func (s *ProjectService) CreateProject(ctx context.Context, project *docchat.Project) error {
	return s.CreateProjectFn(ctx, project)
}

func (s *ProjectService) FindProjectByID(ctx context.Context, id string) (*docchat.Project, error) {
	return s.FindProjectByIDFn(ctx, id)
}

func (s *ProjectService) SetProjectStatus(ctx context.Context, id string, status docchat.ProjectStatus) error {
	return s.SetProjectStatusFn(ctx, id, status)
}
