package docchat

import (
	"context"
	"time"
)

// JobState is the lifecycle state of a queued crawl job.
type JobState string

// Job states. A job moves queued -> active -> completed or failed and is
// never retried.
const (
	JobQueued    JobState = "queued"
	JobActive    JobState = "active"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job wraps a CrawlRequest with queue-managed lifecycle state.
type Job struct {
	ID         string        `json:"id"`
	Request    *CrawlRequest `json:"request"`
	State      JobState      `json:"state"`
	Error      string        `json:"error,omitempty"`
	Result     *JobResult    `json:"result,omitempty"`
	EnqueuedAt time.Time     `json:"enqueuedAt"`
	StartedAt  time.Time     `json:"startedAt,omitzero"`
	FinishedAt time.Time     `json:"finishedAt,omitzero"`
}

// Handle returns the acknowledgement view of the job.
func (j *Job) Handle() *JobHandle {
	return &JobHandle{ID: j.ID, ProjectID: j.Request.ProjectID, State: j.State}
}

// Redacted returns a copy of j safe to display, with request credentials
// masked.
func (j *Job) Redacted() *Job {
	c := *j
	if j.Request != nil {
		c.Request = j.Request.Redacted()
	}
	return &c
}

// JobResult summarizes a completed job.
type JobResult struct {
	Finished int  `json:"finished"`
	Failed   int  `json:"failed"`
	Stored   int  `json:"stored"`
	Replaced bool `json:"replaced"`
}

// JobHandle acknowledges that a request was queued.
type JobHandle struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"projectId"`
	State     JobState `json:"state"`
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	ProjectID *string
	States    []JobState
}

// JobQueue is a FIFO of crawl jobs with lifecycle bookkeeping.
type JobQueue interface {
	// Push appends a new job in the queued state.
	Push(ctx context.Context, job *Job) error

	// Pop blocks until a job is available, marks it active and returns it.
	// Returns the context error when ctx is done.
	Pop(ctx context.Context) (*Job, error)

	// Complete marks an active job as completed.
	Complete(ctx context.Context, id string, result *JobResult) error

	// Fail marks an active job as failed with the given reason.
	Fail(ctx context.Context, id string, reason string) error

	// FindJobByID returns a job by ID.
	// Returns ENOTFOUND if the job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs returns jobs matching the filter in enqueue order.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// Close releases queue resources.
	Close() error
}
