package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

var _ docchat.Generator = (*Generator)(nil)

// Generator implements docchat.Generator using Gemini.
type Generator struct {
	models Models
	model  string
}

// NewGenerator returns a Generator for model. An empty model uses
// DefaultGenerationModel.
func NewGenerator(models Models, model string) *Generator {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &Generator{models: models, model: model}
}

// Generate returns the complete response text.
func (g *Generator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error) {
	result, err := g.models.GenerateContent(ctx, g.model, textContents([]string{prompt}), BuildConfig(opts))
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", docchat.Errorf(docchat.EINTERNAL, "gemini returned nil result")
	}
	return result.Text(), nil
}

// GenerateStream yields response text as it arrives.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, opts docchat.GenerateOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.models.GenerateContentStream(ctx, g.model, textContents([]string{prompt}), BuildConfig(opts)) {
			if err != nil {
				yield("", err)
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// BuildConfig converts generation options to a Gemini request config.
func BuildConfig(opts docchat.GenerateOptions) *genai.GenerateContentConfig {
	temp := opts.Temperature
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(opts.MaxTokens),
	}
	if opts.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemInstruction}},
		}
	}
	return config
}
