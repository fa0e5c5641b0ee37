package docchat

import (
	"context"
	"iter"
)

// GenerateOptions control a text generation call.
type GenerateOptions struct {
	SystemInstruction string
	Temperature       float32
	MaxTokens         int
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate returns the full generated text.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream yields text fragments as they arrive. A non-nil error
	// ends the sequence.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) iter.Seq2[string, error]
}
