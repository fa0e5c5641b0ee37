package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.Answerer = (*Answerer)(nil)

// Answerer is a mock implementation of docchat.Answerer.
type Answerer struct {
	AnswerFn func(ctx context.Context, req docchat.QueryRequest) *docchat.QueryResponse
	StreamFn func(ctx context.Context, req docchat.QueryRequest, onToken func(string)) *docchat.QueryResponse
}

func (a *Answerer) Answer(ctx context.Context, req docchat.QueryRequest) *docchat.QueryResponse {
	return a.AnswerFn(ctx, req)
}

func (a *Answerer) Stream(ctx context.Context, req docchat.QueryRequest, onToken func(string)) *docchat.QueryResponse {
	return a.StreamFn(ctx, req, onToken)
}
