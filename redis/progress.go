package redis

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fwojciec/docchat"
	"github.com/redis/go-redis/v9"
)

var _ docchat.ProgressReporter = (*ProgressPublisher)(nil)

// ProgressPublisher publishes progress events as JSON on a per-project
// pub/sub channel. Events published while nobody listens are lost.
type ProgressPublisher struct {
	client *redis.Client
	keys   keys
	logger *slog.Logger
}

// NewProgressPublisher returns a publisher on client. Publish failures are
// written to logger.
func NewProgressPublisher(client *redis.Client, prefix string, logger *slog.Logger) *ProgressPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProgressPublisher{client: client, keys: keys{prefix: prefixOrDefault(prefix)}, logger: logger}
}

// Channel returns the channel events for projectID are published on.
func (p *ProgressPublisher) Channel(projectID string) string {
	return p.keys.progress(projectID)
}

// Report publishes event once.
func (p *ProgressPublisher) Report(ctx context.Context, event docchat.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("progress encode failed", "project", event.ProjectID, "err", err)
		return
	}
	if err := p.client.Publish(ctx, p.Channel(event.ProjectID), payload).Err(); err != nil {
		p.logger.Warn("progress publish failed", "project", event.ProjectID, "err", err)
	}
}
