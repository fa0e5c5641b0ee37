package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.Embedder         = (*LoggingEmbedder)(nil)
	_ docchat.EmbedderProvider = (*LoggingEmbedderProvider)(nil)
)

// LoggingEmbedder wraps an Embedder with logging.
type LoggingEmbedder struct {
	next   docchat.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next docchat.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// EmbedQuery delegates to the wrapped embedder and logs the call.
func (e *LoggingEmbedder) EmbedQuery(ctx context.Context, text string) (vec []float32, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed query",
			"chars", len(text),
			"dims", len(vec),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.EmbedQuery(ctx, text)
}

// EmbedDocuments delegates to the wrapped embedder and logs the call.
func (e *LoggingEmbedder) EmbedDocuments(ctx context.Context, texts []string) (vecs [][]float32, err error) {
	defer func(begin time.Time) {
		e.logger.Info("embed documents",
			"count", len(texts),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.EmbedDocuments(ctx, texts)
}

// LoggingEmbedderProvider wraps every embedder it opens in a LoggingEmbedder.
type LoggingEmbedderProvider struct {
	next   docchat.EmbedderProvider
	logger *slog.Logger
}

// NewLoggingEmbedderProvider creates a new LoggingEmbedderProvider.
func NewLoggingEmbedderProvider(next docchat.EmbedderProvider, logger *slog.Logger) *LoggingEmbedderProvider {
	return &LoggingEmbedderProvider{next: next, logger: logger}
}

// OpenEmbedder opens an embedder through the wrapped provider.
func (p *LoggingEmbedderProvider) OpenEmbedder(ctx context.Context, creds docchat.EmbeddingCredentials) (docchat.Embedder, error) {
	e, err := p.next.OpenEmbedder(ctx, creds)
	if err != nil {
		p.logger.Warn("open embedder", "err", err)
		return nil, err
	}
	return NewLoggingEmbedder(e, p.logger), nil
}
