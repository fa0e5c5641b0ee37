package prometheus

import (
	"context"
	"time"

	"github.com/fwojciec/docchat"
)

var _ docchat.Fetcher = (*Fetcher)(nil)

// Fetcher counts and times page fetches.
type Fetcher struct {
	fetcher docchat.Fetcher
	metrics *Metrics
}

// NewFetcher returns a new instance of Fetcher.
func NewFetcher(fetcher docchat.Fetcher, metrics *Metrics) *Fetcher {
	return &Fetcher{fetcher: fetcher, metrics: metrics}
}

func (f *Fetcher) Fetch(ctx context.Context, url string, opts docchat.FetchOptions) (page *docchat.RenderedPage, err error) {
	defer func(begin time.Time) {
		f.metrics.PagesFetched.WithLabelValues(SanitizeSite(url), status(err)).Inc()
		f.metrics.FetchDuration.WithLabelValues(status(err)).Observe(time.Since(begin).Seconds())
	}(time.Now())

	return f.fetcher.Fetch(ctx, url, opts)
}

func (f *Fetcher) Close() error {
	return f.fetcher.Close()
}
