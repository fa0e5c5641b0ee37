package mock

import (
	"context"
	"iter"

	"github.com/fwojciec/docchat"
)

var _ docchat.Generator = (*Generator)(nil)

// Generator is a mock implementation of docchat.Generator.
type Generator struct {
	GenerateFn       func(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error)
	GenerateStreamFn func(ctx context.Context, prompt string, opts docchat.GenerateOptions) iter.Seq2[string, error]
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error) {
	return g.GenerateFn(ctx, prompt, opts)
}

func (g *Generator) GenerateStream(ctx context.Context, prompt string, opts docchat.GenerateOptions) iter.Seq2[string, error] {
	return g.GenerateStreamFn(ctx, prompt, opts)
}
