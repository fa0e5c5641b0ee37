package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/docchat"
)

var _ docchat.Answerer = (*Answerer)(nil)

// Query modes.
const (
	ModeBatch  = "batch"
	ModeStream = "stream"
)

// Answerer counts answered questions by outcome and times them.
type Answerer struct {
	answerer docchat.Answerer
	metrics  *Metrics
}

// NewAnswerer returns a new instance of Answerer.
func NewAnswerer(answerer docchat.Answerer, metrics *Metrics) *Answerer {
	return &Answerer{answerer: answerer, metrics: metrics}
}

func (a *Answerer) Answer(ctx context.Context, req docchat.QueryRequest) (resp *docchat.QueryResponse) {
	defer a.observe(ModeBatch, time.Now(), &resp)
	return a.answerer.Answer(ctx, req)
}

func (a *Answerer) Stream(ctx context.Context, req docchat.QueryRequest, onToken func(string)) (resp *docchat.QueryResponse) {
	defer a.observe(ModeStream, time.Now(), &resp)
	return a.answerer.Stream(ctx, req, onToken)
}

func (a *Answerer) observe(mode string, begin time.Time, resp **docchat.QueryResponse) {
	outcome := outcomeFailure
	if *resp != nil && (*resp).Success {
		outcome = outcomeSuccess
	}
	a.metrics.Queries.WithLabelValues(mode, outcome).Inc()
	a.metrics.QueryDuration.WithLabelValues(mode).Observe(time.Since(begin).Seconds())
}
