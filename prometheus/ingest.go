package prometheus

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.Ingester = (*Ingester)(nil)

// Ingester counts stored documents and failed ingestions.
type Ingester struct {
	ingester docchat.Ingester
	metrics  *Metrics
}

// NewIngester returns a new instance of Ingester.
func NewIngester(ingester docchat.Ingester, metrics *Metrics) *Ingester {
	return &Ingester{ingester: ingester, metrics: metrics}
}

func (i *Ingester) Ingest(ctx context.Context, docs []*docchat.CrawledDocument, projectID string, index docchat.VectorIndexCredentials, embedding docchat.EmbeddingCredentials) (*docchat.IngestResult, error) {
	result, err := i.ingester.Ingest(ctx, docs, projectID, index, embedding)
	if err != nil {
		i.metrics.IngestFailures.Inc()
		return nil, err
	}
	i.metrics.DocumentsIngested.Add(float64(result.Stored))
	return result, nil
}
