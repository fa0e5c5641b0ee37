package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ docchat.TokenCounter = (*TokenCounter)(nil)

// TokenCounter reports how many tokens ingested document text costs under a
// model's tokenizer. It runs locally and never calls the API.
type TokenCounter struct {
	model string
	local *tokenizer.LocalTokenizer
}

// NewTokenCounter loads the local tokenizer for model.
func NewTokenCounter(model string) (*TokenCounter, error) {
	local, err := tokenizer.NewLocalTokenizer(model)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer for %s: %w", model, err)
	}
	return &TokenCounter{model: model, local: local}, nil
}

// Model returns the model whose tokenizer is used.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens counts the tokens of one document's text. Blank text, such as
// the placeholder stored for empty pages, counts as zero.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	result, err := tc.local.CountTokens([]*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("count tokens with %s: %w", tc.model, err)
	}
	return int(result.TotalTokens), nil
}
