package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.VectorIndex         = (*VectorIndex)(nil)
	_ docchat.VectorIndexProvider = (*VectorIndexProvider)(nil)
	_ docchat.Embedder            = (*Embedder)(nil)
	_ docchat.EmbedderProvider    = (*EmbedderProvider)(nil)
)

// VectorIndex is a mock implementation of docchat.VectorIndex.
type VectorIndex struct {
	DescribeStatsFn func(ctx context.Context, filter docchat.VectorFilter) (*docchat.IndexStats, error)
	DeleteAllFn     func(ctx context.Context) error
	UpsertFn        func(ctx context.Context, records []docchat.VectorRecord) error
	QueryFn         func(ctx context.Context, vector []float32, k int, filter docchat.VectorFilter) ([]docchat.VectorMatch, error)
}

func (v *VectorIndex) DescribeStats(ctx context.Context, filter docchat.VectorFilter) (*docchat.IndexStats, error) {
	return v.DescribeStatsFn(ctx, filter)
}

func (v *VectorIndex) DeleteAll(ctx context.Context) error {
	return v.DeleteAllFn(ctx)
}

func (v *VectorIndex) Upsert(ctx context.Context, records []docchat.VectorRecord) error {
	return v.UpsertFn(ctx, records)
}

func (v *VectorIndex) Query(ctx context.Context, vector []float32, k int, filter docchat.VectorFilter) ([]docchat.VectorMatch, error) {
	return v.QueryFn(ctx, vector, k, filter)
}

// VectorIndexProvider is a mock implementation of docchat.VectorIndexProvider.
type VectorIndexProvider struct {
	OpenIndexFn func(ctx context.Context, creds docchat.VectorIndexCredentials) (docchat.VectorIndex, error)
}

func (p *VectorIndexProvider) OpenIndex(ctx context.Context, creds docchat.VectorIndexCredentials) (docchat.VectorIndex, error) {
	return p.OpenIndexFn(ctx, creds)
}

// Embedder is a mock implementation of docchat.Embedder.
type Embedder struct {
	EmbedQueryFn     func(ctx context.Context, text string) ([]float32, error)
	EmbedDocumentsFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedQueryFn(ctx, text)
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedDocumentsFn(ctx, texts)
}

// EmbedderProvider is a mock implementation of docchat.EmbedderProvider.
type EmbedderProvider struct {
	OpenEmbedderFn func(ctx context.Context, creds docchat.EmbeddingCredentials) (docchat.Embedder, error)
}

func (p *EmbedderProvider) OpenEmbedder(ctx context.Context, creds docchat.EmbeddingCredentials) (docchat.Embedder, error) {
	return p.OpenEmbedderFn(ctx, creds)
}
