package docchat

import (
	"context"
	"time"
)

// ProgressEvent is an ephemeral, ordered notification about a running job.
type ProgressEvent struct {
	ProjectID string    `json:"projectId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressReporter receives human-readable progress events.
//
// Report is fire-and-forget: it returns nothing and implementations make at
// most one delivery attempt. Callers may rely on issue order only.
type ProgressReporter interface {
	Report(ctx context.Context, event ProgressEvent)
}

// ProgressReporters fans an event out to every reporter in order.
type ProgressReporters []ProgressReporter

// Report implements ProgressReporter.
func (rs ProgressReporters) Report(ctx context.Context, event ProgressEvent) {
	for _, r := range rs {
		r.Report(ctx, event)
	}
}

// Alert subjects.
const (
	AlertCrawlSucceeded = "Crawl succeeded"
	AlertCrawlFailed    = "Crawl failed"
)

// Alert is an operator notification about a job outcome.
type Alert struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Alerter delivers operator alerts. Delivery is fire-and-forget and failed
// sends are not retried.
type Alerter interface {
	Alert(ctx context.Context, alert Alert)
}

// ProgressLog is an append-only store of progress events keyed by project.
type ProgressLog interface {
	ProgressReporter

	// FindProgressEvents returns a project's events oldest first.
	FindProgressEvents(ctx context.Context, projectID string, limit int) ([]*ProgressEvent, error)
}
