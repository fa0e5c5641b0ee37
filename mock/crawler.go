package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.Crawler  = (*Crawler)(nil)
	_ docchat.Ingester = (*Ingester)(nil)
)

// Crawler is a mock implementation of docchat.Crawler.
type Crawler struct {
	CrawlFn func(ctx context.Context, params docchat.CrawlParams, progress docchat.CrawlProgressFunc) (*docchat.CrawlResult, error)
}

func (c *Crawler) Crawl(ctx context.Context, params docchat.CrawlParams, progress docchat.CrawlProgressFunc) (*docchat.CrawlResult, error) {
	return c.CrawlFn(ctx, params, progress)
}

// Ingester is a mock implementation of docchat.Ingester.
type Ingester struct {
	IngestFn func(ctx context.Context, docs []*docchat.CrawledDocument, projectID string, index docchat.VectorIndexCredentials, embedding docchat.EmbeddingCredentials) (*docchat.IngestResult, error)
}

func (i *Ingester) Ingest(ctx context.Context, docs []*docchat.CrawledDocument, projectID string, index docchat.VectorIndexCredentials, embedding docchat.EmbeddingCredentials) (*docchat.IngestResult, error) {
	return i.IngestFn(ctx, docs, projectID, index, embedding)
}
