package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docchat"
)

// Run executes the project add command.
func (c *ProjectAddCmd) Run(deps *Dependencies) error {
	project := &docchat.Project{ID: c.ID, SourceURL: c.URL}
	if err := deps.Projects.CreateProject(deps.Ctx, project); err != nil {
		return printError(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "Added project %s (%s)\n", project.ID, project.Status)
	return nil
}

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	project, err := deps.Projects.FindProjectByID(deps.Ctx, c.Project)
	if err != nil {
		return printError(deps, err)
	}
	fmt.Fprintf(deps.Stdout, "%s\t%s\t%s\n", project.ID, project.Status, project.SourceURL)
	return nil
}

// Run executes the job command.
func (c *JobCmd) Run(deps *Dependencies) error {
	job, err := deps.Jobs.Job(deps.Ctx, c.ID)
	if err != nil {
		return printError(deps, err)
	}
	return writeJSON(deps.Stdout, job.Redacted())
}

// Run executes the logs command.
func (c *LogsCmd) Run(deps *Dependencies) error {
	events, err := deps.ProgressLog.FindProgressEvents(deps.Ctx, c.Project, c.Limit)
	if err != nil {
		return printError(deps, err)
	}
	if len(events) == 0 {
		fmt.Fprintf(deps.Stderr, "No progress recorded for project %s\n", c.Project)
		return nil
	}
	for _, e := range events {
		fmt.Fprintf(deps.Stdout, "%s  %s\n", e.Timestamp.Format(time.RFC3339), e.Message)
	}
	return nil
}
