package main

import (
	"fmt"

	"github.com/fwojciec/docchat"
)

// Run executes the submit command.
func (c *SubmitCmd) Run(deps *Dependencies) error {
	req, err := c.Request(deps.Stdin)
	if err != nil {
		return printError(deps, err)
	}
	if err := ensureProject(deps, req); err != nil {
		return printError(deps, err)
	}

	handle, err := deps.Jobs.Enqueue(deps.Ctx, req)
	if err != nil {
		return printError(deps, err)
	}
	return writeJSON(deps.Stdout, handle)
}

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	req, err := c.Request(deps.Stdin)
	if err != nil {
		return printError(deps, err)
	}
	if err := ensureProject(deps, req); err != nil {
		return printError(deps, err)
	}

	handle, err := deps.Jobs.Enqueue(deps.Ctx, req)
	if err != nil {
		return printError(deps, err)
	}
	fmt.Fprintf(deps.Stderr, "Queued job %s for project %s\n", handle.ID, handle.ProjectID)

	job, err := deps.Jobs.RunOnce(deps.Ctx)
	if err != nil {
		return printError(deps, err)
	}
	if err := writeJSON(deps.Stdout, job.Redacted()); err != nil {
		return err
	}
	if job.State == docchat.JobFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	return nil
}

// ensureProject validates req and creates its project when it does not
// exist yet, so that the job can record the outcome.
func ensureProject(deps *Dependencies, req *docchat.CrawlRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := deps.Projects.FindProjectByID(deps.Ctx, req.ProjectID)
	if docchat.ErrorCode(err) != docchat.ENOTFOUND {
		return err
	}
	return deps.Projects.CreateProject(deps.Ctx, &docchat.Project{
		ID:        req.ProjectID,
		SourceURL: req.WebsiteURL,
	})
}
