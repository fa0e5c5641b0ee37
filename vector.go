package docchat

import "context"

// VectorMetadata is attached to every stored vector.
type VectorMetadata struct {
	URL     string `json:"url"`
	Project string `json:"project"`
}

// VectorRecord is one embedded document ready for storage.
type VectorRecord struct {
	ID       string
	Values   []float32
	Text     string
	Metadata VectorMetadata
}

// VectorMatch is a similarity search hit, best first.
type VectorMatch struct {
	ID       string
	Score    float64
	Text     string
	Metadata VectorMetadata
}

// VectorFilter restricts an index operation to matching metadata.
// The zero value matches every record.
type VectorFilter struct {
	Project string
}

// IndexStats describes the contents of a vector index.
type IndexStats struct {
	RecordCount int
	Dimension   int
}

// VectorIndex is an opaque nearest-neighbor service.
type VectorIndex interface {
	// DescribeStats counts the records matching the filter.
	DescribeStats(ctx context.Context, filter VectorFilter) (*IndexStats, error)

	// DeleteAll removes every record in the index, regardless of project.
	DeleteAll(ctx context.Context) error

	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns up to k records closest to vector that match filter,
	// ranked best first.
	Query(ctx context.Context, vector []float32, k int, filter VectorFilter) ([]VectorMatch, error)
}

// ScopedDeleter is implemented by indexes that can delete by metadata.
type ScopedDeleter interface {
	// DeleteWhere removes the records matching filter. An empty filter is
	// rejected with EINVALID.
	DeleteWhere(ctx context.Context, filter VectorFilter) error
}

// VectorIndexProvider opens the index addressed by a set of credentials.
type VectorIndexProvider interface {
	OpenIndex(ctx context.Context, creds VectorIndexCredentials) (VectorIndex, error)
}

// Embedder converts text to vectors.
type Embedder interface {
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds texts for storage, returning one vector per text
	// in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderProvider opens an embedder authorized by a set of credentials.
type EmbedderProvider interface {
	OpenEmbedder(ctx context.Context, creds EmbeddingCredentials) (Embedder, error)
}
