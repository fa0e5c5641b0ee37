package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.JobQueue = (*JobQueue)(nil)

// JobQueue is a mock implementation of docchat.JobQueue.
type JobQueue struct {
	PushFn        func(ctx context.Context, job *docchat.Job) error
	PopFn         func(ctx context.Context) (*docchat.Job, error)
	CompleteFn    func(ctx context.Context, id string, result *docchat.JobResult) error
	FailFn        func(ctx context.Context, id string, reason string) error
	FindJobByIDFn func(ctx context.Context, id string) (*docchat.Job, error)
	FindJobsFn    func(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error)
	CloseFn       func() error
}

func (q *JobQueue) Push(ctx context.Context, job *docchat.Job) error {
	return q.PushFn(ctx, job)
}

func (q *JobQueue) Pop(ctx context.Context) (*docchat.Job, error) {
	return q.PopFn(ctx)
}

func (q *JobQueue) Complete(ctx context.Context, id string, result *docchat.JobResult) error {
	return q.CompleteFn(ctx, id, result)
}

func (q *JobQueue) Fail(ctx context.Context, id string, reason string) error {
	return q.FailFn(ctx, id, reason)
}

func (q *JobQueue) FindJobByID(ctx context.Context, id string) (*docchat.Job, error) {
	return q.FindJobByIDFn(ctx, id)
}

func (q *JobQueue) FindJobs(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	return q.FindJobsFn(ctx, filter)
}

func (q *JobQueue) Close() error {
	return q.CloseFn()
}
