// Package rag answers questions from a project's vector index using
// retrieval-augmented generation.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.Answerer = (*Engine)(nil)

const (
	// DefaultTopK is the number of context sections retrieved per question.
	DefaultTopK = 2
	// DefaultMaxTokens caps the generated answer.
	DefaultMaxTokens = 512

	// SuccessMessage is the message of every successful response.
	SuccessMessage = "Query successful."
	// Refusal is what the model is told to say when the context has no answer.
	Refusal = "Sorry, I don't know how to help with that."
)

// SystemInstruction restricts the model to the retrieved context.
const SystemInstruction = `You are a highly dedicated representative of our tech company, committed to assisting and delighting our users. ` +
	`Given the provided sections from the organization documentation, respond to the inquiry using only that information. ` +
	`If the answer is not explicitly stated in the documentation, say exactly "` + Refusal + `" ` +
	`and keep a professional and friendly tone.`

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// Engine answers questions. It keeps no state between calls and is safe
// for concurrent use.
type Engine struct {
	Indexes   docchat.VectorIndexProvider
	Embedders docchat.EmbedderProvider
	Generator docchat.Generator
	Logger    *slog.Logger

	// TopK and MaxTokens default to DefaultTopK and DefaultMaxTokens.
	TopK      int
	MaxTokens int
}

// Answer returns the complete answer to req.
func (e *Engine) Answer(ctx context.Context, req docchat.QueryRequest) *docchat.QueryResponse {
	return e.respond(ctx, req, func(prompt string, opts docchat.GenerateOptions) (string, error) {
		return e.Generator.Generate(ctx, prompt, opts)
	})
}

// Stream passes answer fragments to onToken as they arrive. The returned
// response carries the assembled answer.
func (e *Engine) Stream(ctx context.Context, req docchat.QueryRequest, onToken func(string)) *docchat.QueryResponse {
	return e.respond(ctx, req, func(prompt string, opts docchat.GenerateOptions) (string, error) {
		var sb strings.Builder
		for chunk, err := range e.Generator.GenerateStream(ctx, prompt, opts) {
			if err != nil {
				return "", err
			}
			sb.WriteString(chunk)
			if onToken != nil {
				onToken(chunk)
			}
		}
		return sb.String(), nil
	})
}

type generateFunc func(prompt string, opts docchat.GenerateOptions) (string, error)

func (e *Engine) respond(ctx context.Context, req docchat.QueryRequest, generate generateFunc) (resp *docchat.QueryResponse) {
	logger := e.logger().With("project", req.ProjectID)
	defer func(begin time.Time) {
		logger.Info("query", "duration", time.Since(begin), "success", resp.Success)
	}(time.Now())

	answer, err := e.answer(ctx, req, generate)
	if err != nil {
		logger.Error("query failed", "err", err)
		return &docchat.QueryResponse{
			Success: false,
			Message: fmt.Sprintf("Something went wrong: %s.", message(err)),
		}
	}
	return &docchat.QueryResponse{Success: true, Message: SuccessMessage, Answer: &answer}
}

func (e *Engine) answer(ctx context.Context, req docchat.QueryRequest, generate generateFunc) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	index, err := e.Indexes.OpenIndex(ctx, req.VectorIndex)
	if err != nil {
		return "", fmt.Errorf("open index: %w", err)
	}
	embedder, err := e.Embedders.OpenEmbedder(ctx, req.Embedding)
	if err != nil {
		return "", fmt.Errorf("open embedder: %w", err)
	}

	vector, err := embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	matches, err := index.Query(ctx, vector, e.topK(), docchat.VectorFilter{Project: req.ProjectID})
	if err != nil {
		return "", fmt.Errorf("search index: %w", err)
	}

	prompt := BuildPrompt(req.Question, BuildContext(matches))
	answer, err := generate(prompt, docchat.GenerateOptions{
		SystemInstruction: SystemInstruction,
		Temperature:       0,
		MaxTokens:         e.maxTokens(),
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}

// BuildContext strips markup from the matches and joins them in rank order.
func BuildContext(matches []docchat.VectorMatch) string {
	sections := make([]string, len(matches))
	for i, m := range matches {
		sections[i] = StripTags(m.Text)
	}
	return strings.Join(sections, " ")
}

// StripTags removes anything that looks like an HTML tag, including an
// unterminated one at the end of the text.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// BuildPrompt builds the user prompt for a question and its context.
func BuildPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("Context sections:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion: \"\"\"\n")
	sb.WriteString(question)
	sb.WriteString("\n\"\"\"\n\n")
	sb.WriteString("Answer as markdown (including related code snippets if available):")
	return sb.String()
}

func (e *Engine) topK() int {
	if e.TopK > 0 {
		return e.TopK
	}
	return DefaultTopK
}

func (e *Engine) maxTokens() int {
	if e.MaxTokens > 0 {
		return e.MaxTokens
	}
	return DefaultMaxTokens
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// message prefers the domain message of an application error anywhere in
// the chain and falls back to the full error text.
func message(err error) string {
	var e *docchat.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
