package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.ProgressReporter = (*ProgressReporter)(nil)
	_ docchat.Alerter          = (*Alerter)(nil)
)

// ProgressReporter writes progress events to a logger.
type ProgressReporter struct {
	logger *slog.Logger
}

// NewProgressReporter creates a new ProgressReporter.
func NewProgressReporter(logger *slog.Logger) *ProgressReporter {
	return &ProgressReporter{logger: logger}
}

// Report logs the event.
func (r *ProgressReporter) Report(ctx context.Context, event docchat.ProgressEvent) {
	r.logger.InfoContext(ctx, event.Message, "project", event.ProjectID)
}

// Alerter writes alerts to a logger. Failure alerts are logged at error
// level.
type Alerter struct {
	logger *slog.Logger
}

// NewAlerter creates a new Alerter.
func NewAlerter(logger *slog.Logger) *Alerter {
	return &Alerter{logger: logger}
}

// Alert logs the alert.
func (a *Alerter) Alert(ctx context.Context, alert docchat.Alert) {
	level := slog.LevelInfo
	if alert.Subject == docchat.AlertCrawlFailed {
		level = slog.LevelError
	}
	a.logger.Log(ctx, level, "alert", "subject", alert.Subject, "text", alert.Text)
}
