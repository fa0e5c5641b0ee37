package prometheus

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.JobQueue = (*JobQueue)(nil)

// Job lifecycle events.
const (
	JobEnqueued  = "enqueued"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobQueue counts job lifecycle transitions and tracks active jobs.
type JobQueue struct {
	queue   docchat.JobQueue
	metrics *Metrics
}

// NewJobQueue returns a new instance of JobQueue.
func NewJobQueue(queue docchat.JobQueue, metrics *Metrics) *JobQueue {
	return &JobQueue{queue: queue, metrics: metrics}
}

func (q *JobQueue) Push(ctx context.Context, job *docchat.Job) error {
	if err := q.queue.Push(ctx, job); err != nil {
		return err
	}
	q.metrics.Jobs.WithLabelValues(JobEnqueued).Inc()
	return nil
}

func (q *JobQueue) Pop(ctx context.Context) (*docchat.Job, error) {
	job, err := q.queue.Pop(ctx)
	if err != nil {
		return nil, err
	}
	q.metrics.ActiveJobs.Inc()
	return job, nil
}

func (q *JobQueue) Complete(ctx context.Context, id string, result *docchat.JobResult) error {
	if err := q.queue.Complete(ctx, id, result); err != nil {
		return err
	}
	q.metrics.ActiveJobs.Dec()
	q.metrics.Jobs.WithLabelValues(JobCompleted).Inc()
	return nil
}

func (q *JobQueue) Fail(ctx context.Context, id string, reason string) error {
	if err := q.queue.Fail(ctx, id, reason); err != nil {
		return err
	}
	q.metrics.ActiveJobs.Dec()
	q.metrics.Jobs.WithLabelValues(JobFailed).Inc()
	return nil
}

func (q *JobQueue) FindJobByID(ctx context.Context, id string) (*docchat.Job, error) {
	return q.queue.FindJobByID(ctx, id)
}

func (q *JobQueue) FindJobs(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	return q.queue.FindJobs(ctx, filter)
}

func (q *JobQueue) Close() error {
	return q.queue.Close()
}
