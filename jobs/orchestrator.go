// Package jobs accepts crawl requests and runs them one at a time through
// the crawl, ingest and notification steps.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/google/uuid"
)

// Orchestrator owns the crawl job lifecycle. Enqueue may be called
// concurrently; Run is the single worker and processes jobs in FIFO order.
type Orchestrator struct {
	Queue    docchat.JobQueue
	Crawler  docchat.Crawler
	Ingester docchat.Ingester
	Projects docchat.ProjectService
	Progress docchat.ProgressReporter
	Alerter  docchat.Alerter
	Logger   *slog.Logger

	// RejectConcurrent makes Enqueue refuse a request while another job for
	// the same project is queued or active.
	RejectConcurrent bool

	// MarkFailed sets the project status to failed when a job fails.
	// Otherwise the status is left as it was.
	MarkFailed bool

	// ValidatePatterns, if set, rejects link patterns at enqueue time.
	ValidatePatterns func(patterns []string) error

	// StaleAfter, if positive, stops an active job that started longer ago
	// than this from blocking new jobs for its project.
	StaleAfter time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// mu serializes the concurrency check with the push.
	mu sync.Mutex
}

// Enqueue validates req and queues it. The returned handle only
// acknowledges the request; the outcome is observed through Job.
func (o *Orchestrator) Enqueue(ctx context.Context, req *docchat.CrawlRequest) (*docchat.JobHandle, error) {
	if req == nil {
		return nil, docchat.Errorf(docchat.EINVALID, "crawl request required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if o.ValidatePatterns != nil {
		if err := o.ValidatePatterns(req.LinkPattern); err != nil {
			return nil, err
		}
	}

	if o.RejectConcurrent {
		o.mu.Lock()
		defer o.mu.Unlock()

		pid := req.ProjectID
		running, err := o.Queue.FindJobs(ctx, docchat.JobFilter{
			ProjectID: &pid,
			States:    []docchat.JobState{docchat.JobQueued, docchat.JobActive},
		})
		if err != nil {
			return nil, fmt.Errorf("find running jobs: %w", err)
		}
		for _, j := range running {
			if o.stale(j) {
				o.logger().Warn("ignoring stale job", "job", j.ID, "project", pid, "started", j.StartedAt)
				continue
			}
			return nil, docchat.Errorf(docchat.ECONFLICT, "project %s already has job %s %s", pid, j.ID, j.State)
		}
	}

	// Copy so later caller mutations cannot reach the queued job.
	frozen := *req
	frozen.LinkPattern = append(docchat.Patterns(nil), req.LinkPattern...)

	job := &docchat.Job{
		ID:         uuid.NewString(),
		Request:    &frozen,
		EnqueuedAt: o.now(),
	}
	if err := o.Queue.Push(ctx, job); err != nil {
		return nil, err
	}
	o.logger().Info("job enqueued", "job", job.ID, "project", req.ProjectID, "url", req.WebsiteURL)
	return job.Handle(), nil
}

// Job returns the current state of a job.
func (o *Orchestrator) Job(ctx context.Context, id string) (*docchat.Job, error) {
	return o.Queue.FindJobByID(ctx, id)
}

// Run processes jobs until ctx is done. It returns nil on cancellation and
// the queue error otherwise.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if _, err := o.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// RunOnce blocks for the next job, processes it, and returns its final
// state. Job failures are recorded on the job, not returned.
func (o *Orchestrator) RunOnce(ctx context.Context) (*docchat.Job, error) {
	job, err := o.Queue.Pop(ctx)
	if err != nil {
		return nil, err
	}
	o.process(ctx, job)
	return o.Queue.FindJobByID(context.WithoutCancel(ctx), job.ID)
}

func (o *Orchestrator) process(ctx context.Context, job *docchat.Job) {
	logger := o.logger().With("job", job.ID)
	// Bookkeeping must outlive a canceled worker so the job is not left active.
	bg := context.WithoutCancel(ctx)

	req := job.Request
	if req == nil {
		o.fail(bg, logger, job, docchat.Errorf(docchat.EINVALID, "job has no request"))
		return
	}
	if err := req.Validate(); err != nil {
		o.fail(bg, logger, job, err)
		return
	}
	logger = logger.With("project", req.ProjectID)
	logger.Info("job started", "url", req.WebsiteURL)

	o.report(ctx, req.ProjectID, fmt.Sprintf("Crawl started for %s", req.WebsiteURL))

	crawled, err := o.Crawler.Crawl(ctx, docchat.CrawlParams{
		WebsiteURL:      req.WebsiteURL,
		LinkPatterns:    req.LinkPattern,
		ContentSelector: req.ContentSelector,
		MaxPages:        req.MaxPages,
	}, func(e docchat.CrawlEvent) {
		if msg := crawlMessage(e); msg != "" {
			o.report(ctx, req.ProjectID, msg)
		}
	})
	if err != nil {
		o.fail(bg, logger, job, err)
		return
	}
	o.report(ctx, req.ProjectID, fmt.Sprintf("Crawl finished for %s: %d pages crawled, %d failed, %d documents collected",
		req.WebsiteURL, crawled.Finished, crawled.Failed, len(crawled.Documents)))

	ingested, err := o.Ingester.Ingest(ctx, crawled.Documents, req.ProjectID, req.VectorIndex, req.Embedding)
	if err != nil {
		o.fail(bg, logger, job, err)
		return
	}
	o.report(ctx, req.ProjectID, "Stored vector embeddings successfully.")

	if err := o.Projects.SetProjectStatus(ctx, req.ProjectID, docchat.ProjectCreated); err != nil {
		o.fail(bg, logger, job, err)
		return
	}

	o.alert(bg, docchat.Alert{
		Subject: docchat.AlertCrawlSucceeded,
		Text:    fmt.Sprintf("Crawl successful for %s: %d pages stored.", req.WebsiteURL, ingested.Stored),
	})
	o.report(bg, req.ProjectID, fmt.Sprintf("Knowledge base ready for project %s", req.ProjectID))

	result := &docchat.JobResult{
		Finished: crawled.Finished,
		Failed:   crawled.Failed,
		Stored:   ingested.Stored,
		Replaced: ingested.Replaced,
	}
	if err := o.Queue.Complete(bg, job.ID, result); err != nil {
		logger.Error("failed to complete job", "err", err)
		return
	}
	logger.Info("job completed", "finished", result.Finished, "failed", result.Failed, "stored", result.Stored)
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, job *docchat.Job, cause error) {
	msg := message(cause)
	url, projectID := "", ""
	if job.Request != nil {
		url, projectID = job.Request.WebsiteURL, job.Request.ProjectID
	}
	logger.Error("job failed", "err", cause)

	text := fmt.Sprintf("Crawl failed for %s with error: %s", url, msg)
	o.alert(ctx, docchat.Alert{Subject: docchat.AlertCrawlFailed, Text: text})
	if projectID != "" {
		o.report(ctx, projectID, text)
	}

	if err := o.Queue.Fail(ctx, job.ID, msg); err != nil {
		logger.Error("failed to record job failure", "err", err)
	}

	if o.MarkFailed && projectID != "" {
		if err := o.Projects.SetProjectStatus(ctx, projectID, docchat.ProjectFailed); err != nil {
			logger.Error("failed to mark project failed", "err", err)
		}
	}
}

func (o *Orchestrator) report(ctx context.Context, projectID, msg string) {
	if o.Progress == nil {
		return
	}
	o.Progress.Report(ctx, docchat.ProgressEvent{
		ProjectID: projectID,
		Message:   msg,
		Timestamp: o.now(),
	})
}

func (o *Orchestrator) alert(ctx context.Context, a docchat.Alert) {
	if o.Alerter != nil {
		o.Alerter.Alert(ctx, a)
	}
}

// stale reports whether an active job has run past StaleAfter, which
// happens when its worker died before recording an outcome.
func (o *Orchestrator) stale(j *docchat.Job) bool {
	if o.StaleAfter <= 0 || j.State != docchat.JobActive || j.StartedAt.IsZero() {
		return false
	}
	return o.now().Sub(j.StartedAt) > o.StaleAfter
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func crawlMessage(e docchat.CrawlEvent) string {
	switch e.Type {
	case docchat.CrawlPageCompleted:
		return fmt.Sprintf("Crawled %s (%s)", e.Title, e.URL)
	case docchat.CrawlPageFailed:
		return fmt.Sprintf("Failed to crawl %s: %s", e.URL, message(e.Err))
	}
	return ""
}

// message returns text fit for users: the domain message for application
// errors and the raw text otherwise.
func message(err error) string {
	var e *docchat.Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
