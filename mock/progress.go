package mock

import (
	"context"
	"sync"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.ProgressReporter = (*ProgressReporter)(nil)
	_ docchat.Alerter          = (*Alerter)(nil)
	_ docchat.ProgressLog      = (*ProgressLog)(nil)
	_ docchat.ProgressReporter = (*ProgressRecorder)(nil)
)

// ProgressReporter is a mock implementation of docchat.ProgressReporter.
type ProgressReporter struct {
	ReportFn func(ctx context.Context, event docchat.ProgressEvent)
}

func (r *ProgressReporter) Report(ctx context.Context, event docchat.ProgressEvent) {
	r.ReportFn(ctx, event)
}

// Alerter is a mock implementation of docchat.Alerter.
type Alerter struct {
	AlertFn func(ctx context.Context, alert docchat.Alert)
}

func (a *Alerter) Alert(ctx context.Context, alert docchat.Alert) {
	a.AlertFn(ctx, alert)
}

// ProgressLog is a mock implementation of docchat.ProgressLog.
type ProgressLog struct {
	ReportFn             func(ctx context.Context, event docchat.ProgressEvent)
	FindProgressEventsFn func(ctx context.Context, projectID string, limit int) ([]*docchat.ProgressEvent, error)
}

func (l *ProgressLog) Report(ctx context.Context, event docchat.ProgressEvent) {
	l.ReportFn(ctx, event)
}

func (l *ProgressLog) FindProgressEvents(ctx context.Context, projectID string, limit int) ([]*docchat.ProgressEvent, error) {
	return l.FindProgressEventsFn(ctx, projectID, limit)
}

// ProgressRecorder records every reported event. It is safe for concurrent use.
type ProgressRecorder struct {
	mu     sync.Mutex
	events []docchat.ProgressEvent
}

func (r *ProgressRecorder) Report(_ context.Context, event docchat.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Messages returns the recorded messages in report order.
func (r *ProgressRecorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]string, len(r.events))
	for i, e := range r.events {
		msgs[i] = e.Message
	}
	return msgs
}
