package slog

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/fwojciec/docchat"
)

var _ docchat.Generator = (*LoggingGenerator)(nil)

// LoggingGenerator wraps a Generator with logging.
type LoggingGenerator struct {
	next   docchat.Generator
	logger *slog.Logger
}

// NewLoggingGenerator creates a new LoggingGenerator.
func NewLoggingGenerator(next docchat.Generator, logger *slog.Logger) *LoggingGenerator {
	return &LoggingGenerator{next: next, logger: logger}
}

// Generate delegates to the wrapped generator and logs the call.
func (g *LoggingGenerator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (text string, err error) {
	defer func(begin time.Time) {
		g.logger.Info("generate",
			"prompt_chars", len(prompt),
			"answer_chars", len(text),
			"max_tokens", opts.MaxTokens,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Generate(ctx, prompt, opts)
}

// GenerateStream delegates to the wrapped generator and logs once the
// stream ends.
func (g *LoggingGenerator) GenerateStream(ctx context.Context, prompt string, opts docchat.GenerateOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var chunks, chars int
		var err error
		defer func(begin time.Time) {
			g.logger.Info("generate stream",
				"prompt_chars", len(prompt),
				"chunks", chunks,
				"answer_chars", chars,
				"duration", time.Since(begin),
				"err", err,
			)
		}(time.Now())
		for s, e := range g.next.GenerateStream(ctx, prompt, opts) {
			if e != nil {
				err = e
			} else {
				chunks++
				chars += len(s)
			}
			if !yield(s, e) {
				return
			}
		}
	}
}
