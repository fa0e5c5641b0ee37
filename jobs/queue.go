package jobs

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.JobQueue = (*MemoryQueue)(nil)

// MemoryQueue is an in-process FIFO job queue. Jobs are lost when the
// process exits.
type MemoryQueue struct {
	mu      sync.Mutex
	jobs    map[string]*docchat.Job
	order   []string
	pending []string

	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryQueue returns an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:   make(map[string]*docchat.Job),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		Now:    time.Now,
	}
}

// Push appends job in the queued state.
func (q *MemoryQueue) Push(_ context.Context, job *docchat.Job) error {
	if job.ID == "" {
		return docchat.Errorf(docchat.EINVALID, "job ID required")
	}
	if job.Request == nil {
		return docchat.Errorf(docchat.EINVALID, "job request required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case <-q.done:
		return docchat.Errorf(docchat.EINVALID, "queue closed")
	default:
	}
	if _, ok := q.jobs[job.ID]; ok {
		return docchat.Errorf(docchat.ECONFLICT, "job %s already exists", job.ID)
	}

	job.State = docchat.JobQueued
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.Now()
	}
	q.jobs[job.ID] = clone(job)
	q.order = append(q.order, job.ID)
	q.pending = append(q.pending, job.ID)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until a job is queued, then marks it active.
func (q *MemoryQueue) Pop(ctx context.Context) (*docchat.Job, error) {
	for {
		if job := q.next(); job != nil {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.done:
			return nil, docchat.Errorf(docchat.EINVALID, "queue closed")
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) next() *docchat.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	id := q.pending[0]
	q.pending = q.pending[1:]

	job := q.jobs[id]
	job.State = docchat.JobActive
	job.StartedAt = q.Now()

	// Wake another waiter if more work remains.
	if len(q.pending) > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return clone(job)
}

// Complete marks an active job as completed.
func (q *MemoryQueue) Complete(_ context.Context, id string, result *docchat.JobResult) error {
	return q.finish(id, func(job *docchat.Job) {
		job.State = docchat.JobCompleted
		job.Result = result
	})
}

// Fail marks an active job as failed.
func (q *MemoryQueue) Fail(_ context.Context, id string, reason string) error {
	return q.finish(id, func(job *docchat.Job) {
		job.State = docchat.JobFailed
		job.Error = reason
	})
}

func (q *MemoryQueue) finish(id string, fn func(*docchat.Job)) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return docchat.Errorf(docchat.ENOTFOUND, "job %s not found", id)
	}
	if job.State != docchat.JobActive {
		return docchat.Errorf(docchat.EINVALID, "job %s is %s, not active", id, job.State)
	}
	fn(job)
	job.FinishedAt = q.Now()
	return nil
}

// FindJobByID returns a snapshot of the job.
func (q *MemoryQueue) FindJobByID(_ context.Context, id string) (*docchat.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "job %s not found", id)
	}
	return clone(job), nil
}

// FindJobs returns snapshots of matching jobs in enqueue order.
func (q *MemoryQueue) FindJobs(_ context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*docchat.Job
	for _, id := range q.order {
		job := q.jobs[id]
		if Matches(job, filter) {
			out = append(out, clone(job))
		}
	}
	return out, nil
}

// Close wakes blocked Pop calls and rejects further pushes.
func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

// Matches reports whether job satisfies filter.
func Matches(job *docchat.Job, filter docchat.JobFilter) bool {
	if filter.ProjectID != nil && (job.Request == nil || job.Request.ProjectID != *filter.ProjectID) {
		return false
	}
	if len(filter.States) > 0 && !slices.Contains(filter.States, job.State) {
		return false
	}
	return true
}

func clone(job *docchat.Job) *docchat.Job {
	c := *job
	if job.Result != nil {
		r := *job.Result
		c.Result = &r
	}
	return &c
}
