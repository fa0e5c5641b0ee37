package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/jobs"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface verification.
var _ docchat.JobQueue = (*Queue)(nil)

const (
	defaultGroup    = "workers"
	defaultConsumer = "worker-1"
	defaultBlock    = time.Second
)

// Job hash fields.
const (
	fieldRequest    = "request"
	fieldState      = "state"
	fieldError      = "error"
	fieldResult     = "result"
	fieldEnqueuedAt = "enqueued_at"
	fieldStartedAt  = "started_at"
	fieldFinishedAt = "finished_at"
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Prefix namespaces all keys. Empty means DefaultPrefix.
	Prefix string

	// Group and Consumer identify this worker in the stream's consumer group.
	Group    string
	Consumer string

	// Block bounds each stream read; Pop re-checks its context in between.
	Block time.Duration

	Logger *slog.Logger
}

// Queue is a durable docchat.JobQueue.
//
// Job order lives in a Redis stream read through a consumer group. Each
// job's state is a hash, with a per-project set and a global sorted set as
// lookup indexes. A popped message is acknowledged immediately, so a job is
// delivered at most once even if the worker dies while running it.
type Queue struct {
	client   *redis.Client
	keys     keys
	group    string
	consumer string
	block    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewQueue returns a Queue on client. Call Init before Pop.
func NewQueue(client *redis.Client, cfg QueueConfig) *Queue {
	q := &Queue{
		client:   client,
		keys:     keys{prefix: prefixOrDefault(cfg.Prefix)},
		group:    cfg.Group,
		consumer: cfg.Consumer,
		block:    cfg.Block,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	if q.group == "" {
		q.group = defaultGroup
	}
	if q.consumer == "" {
		q.consumer = defaultConsumer
	}
	if q.block <= 0 {
		q.block = defaultBlock
	}
	if q.logger == nil {
		q.logger = slog.New(slog.DiscardHandler)
	}
	return q
}

// Init creates the stream and consumer group if they do not exist.
func (q *Queue) Init(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.keys.stream(), q.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Push stores job and appends it to the stream.
func (q *Queue) Push(ctx context.Context, job *docchat.Job) error {
	if job.ID == "" {
		return docchat.Errorf(docchat.EINVALID, "job ID required")
	}
	if job.Request == nil {
		return docchat.Errorf(docchat.EINVALID, "job request required")
	}

	request, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now()
	}
	job.State = docchat.JobQueued

	created, err := q.client.HSetNX(ctx, q.keys.job(job.ID), fieldRequest, request).Result()
	if err != nil {
		return err
	}
	if !created {
		return docchat.Errorf(docchat.ECONFLICT, "job %s already exists", job.ID)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys.job(job.ID), map[string]any{
			fieldState:      string(job.State),
			fieldEnqueuedAt: formatTime(job.EnqueuedAt),
		})
		pipe.SAdd(ctx, q.keys.projectJobs(job.Request.ProjectID), job.ID)
		pipe.ZAdd(ctx, q.keys.index(), redis.Z{Score: float64(job.EnqueuedAt.UnixNano()), Member: job.ID})
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.keys.stream(),
			Values: map[string]any{"job": job.ID},
		})
		return nil
	})
	return err
}

// Pop blocks until a job is available, marks it active and returns it.
func (q *Queue) Pop(ctx context.Context) (*docchat.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.keys.stream(), ">"},
			Count:    1,
			Block:    q.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to read from stream: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := q.client.XAck(ctx, q.keys.stream(), q.group, msg.ID).Err(); err != nil {
					return nil, fmt.Errorf("failed to acknowledge message: %w", err)
				}
				id, _ := msg.Values["job"].(string)
				job, err := q.activate(ctx, id)
				if err != nil {
					q.logger.Warn("dropping stream message", "message", msg.ID, "job", id, "err", err)
					continue
				}
				return job, nil
			}
		}
	}
}

func (q *Queue) activate(ctx context.Context, id string) (*docchat.Job, error) {
	if id == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "message has no job ID")
	}
	exists, err := q.client.HExists(ctx, q.keys.job(id), fieldRequest).Result()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "job %s not found", id)
	}
	if err := q.client.HSet(ctx, q.keys.job(id),
		fieldState, string(docchat.JobActive),
		fieldStartedAt, formatTime(q.now()),
	).Err(); err != nil {
		return nil, err
	}
	return q.FindJobByID(ctx, id)
}

// Complete marks an active job as completed.
func (q *Queue) Complete(ctx context.Context, id string, result *docchat.JobResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return q.finish(ctx, id, map[string]any{
		fieldState:  string(docchat.JobCompleted),
		fieldResult: encoded,
	})
}

// Fail marks an active job as failed.
func (q *Queue) Fail(ctx context.Context, id string, reason string) error {
	return q.finish(ctx, id, map[string]any{
		fieldState: string(docchat.JobFailed),
		fieldError: reason,
	})
}

func (q *Queue) finish(ctx context.Context, id string, fields map[string]any) error {
	state, err := q.client.HGet(ctx, q.keys.job(id), fieldState).Result()
	if errors.Is(err, redis.Nil) {
		return docchat.Errorf(docchat.ENOTFOUND, "job %s not found", id)
	} else if err != nil {
		return err
	}
	if docchat.JobState(state) != docchat.JobActive {
		return docchat.Errorf(docchat.EINVALID, "job %s is %s, not active", id, state)
	}
	fields[fieldFinishedAt] = formatTime(q.now())
	return q.client.HSet(ctx, q.keys.job(id), fields).Err()
}

// FindJobByID loads a job from its hash.
func (q *Queue) FindJobByID(ctx context.Context, id string) (*docchat.Job, error) {
	fields, err := q.client.HGetAll(ctx, q.keys.job(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "job %s not found", id)
	}
	return decodeJob(id, fields)
}

// FindJobs returns matching jobs in enqueue order.
func (q *Queue) FindJobs(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	var ids []string
	var err error
	if filter.ProjectID != nil {
		ids, err = q.client.SMembers(ctx, q.keys.projectJobs(*filter.ProjectID)).Result()
	} else {
		ids, err = q.client.ZRange(ctx, q.keys.index(), 0, -1).Result()
	}
	if err != nil {
		return nil, err
	}

	var out []*docchat.Job
	for _, id := range ids {
		job, err := q.FindJobByID(ctx, id)
		if docchat.ErrorCode(err) == docchat.ENOTFOUND {
			continue
		} else if err != nil {
			return nil, err
		}
		if jobs.Matches(job, filter) {
			out = append(out, job)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out, nil
}

// Close closes the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}

func decodeJob(id string, fields map[string]string) (*docchat.Job, error) {
	job := &docchat.Job{
		ID:    id,
		State: docchat.JobState(fields[fieldState]),
		Error: fields[fieldError],
	}
	if raw := fields[fieldRequest]; raw != "" {
		job.Request = &docchat.CrawlRequest{}
		if err := json.Unmarshal([]byte(raw), job.Request); err != nil {
			return nil, fmt.Errorf("decode job %s request: %w", id, err)
		}
	}
	if raw := fields[fieldResult]; raw != "" {
		job.Result = &docchat.JobResult{}
		if err := json.Unmarshal([]byte(raw), job.Result); err != nil {
			return nil, fmt.Errorf("decode job %s result: %w", id, err)
		}
	}
	var err error
	if job.EnqueuedAt, err = parseTime(fields[fieldEnqueuedAt]); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseTime(fields[fieldStartedAt]); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = parseTime(fields[fieldFinishedAt]); err != nil {
		return nil, err
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
