// Package ingest writes crawled documents into a project's vector index.
package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docchat"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface verification.
var _ docchat.Ingester = (*Manager)(nil)

const (
	// DefaultBatchSize is the number of texts per embedding request.
	DefaultBatchSize = 100
	// DefaultConcurrency bounds the embedding requests in flight.
	DefaultConcurrency = 4
	// markerSearchK is how many records the existence check asks for.
	markerSearchK = 1000
)

// emptyText stands in for documents without text; embedders reject "".
const emptyText = " "

// Manager replaces a project's records in its vector index with a fresh set
// of documents.
type Manager struct {
	Indexes   docchat.VectorIndexProvider
	Embedders docchat.EmbedderProvider

	// BatchSize and Concurrency shape the embedding fan-out.
	// Zero means the defaults.
	BatchSize   int
	Concurrency int

	// ScopedDelete removes only the project's records when the index
	// supports it. Otherwise existing records trigger a full index wipe.
	ScopedDelete bool

	// Tokens, if set, counts the tokens of the ingested text.
	Tokens docchat.TokenCounter
}

// Ingest stores docs as the complete record set for projectID.
//
// If the project already has records the index is cleared first, so after
// a successful call the project holds exactly docs. Every failure is
// returned as EINGEST and may leave the index partially written.
func (m *Manager) Ingest(ctx context.Context, docs []*docchat.CrawledDocument, projectID string, indexCreds docchat.VectorIndexCredentials, embedCreds docchat.EmbeddingCredentials) (*docchat.IngestResult, error) {
	if projectID == "" {
		return nil, docchat.Errorf(docchat.EINGEST, "project ID required")
	}

	index, err := m.Indexes.OpenIndex(ctx, indexCreds)
	if err != nil {
		return nil, failed("open index", err)
	}
	embedder, err := m.Embedders.OpenEmbedder(ctx, embedCreds)
	if err != nil {
		return nil, failed("open embedder", err)
	}

	exists, err := m.projectExists(ctx, index, embedder, projectID)
	if err != nil {
		return nil, failed("check existing records", err)
	}

	result := &docchat.IngestResult{}
	if exists {
		if err := m.clear(ctx, index, projectID); err != nil {
			return nil, failed("delete existing records", err)
		}
		result.Replaced = true
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
		if texts[i] == "" {
			texts[i] = emptyText
		}
	}

	vectors, err := m.embed(ctx, embedder, texts)
	if err != nil {
		return nil, failed("embed documents", err)
	}

	records := make([]docchat.VectorRecord, len(docs))
	for i, doc := range docs {
		records[i] = docchat.VectorRecord{
			ID:     RecordID(projectID, doc.URL),
			Values: vectors[i],
			Text:   texts[i],
			Metadata: docchat.VectorMetadata{
				URL:     doc.URL,
				Project: projectID,
			},
		}
	}
	if len(records) > 0 {
		if err := index.Upsert(ctx, records); err != nil {
			return nil, failed("upsert records", err)
		}
	}
	result.Stored = len(records)

	if m.Tokens != nil {
		for _, text := range texts {
			n, err := m.Tokens.CountTokens(ctx, text)
			if err != nil {
				return nil, failed("count tokens", err)
			}
			result.Tokens += n
		}
	}

	return result, nil
}

// projectExists runs the cheap stats check first and only falls back to a
// filtered marker search when the index holds anything at all.
func (m *Manager) projectExists(ctx context.Context, index docchat.VectorIndex, embedder docchat.Embedder, projectID string) (bool, error) {
	stats, err := index.DescribeStats(ctx, docchat.VectorFilter{})
	if err != nil {
		return false, err
	}
	if stats.RecordCount == 0 {
		return false, nil
	}

	marker, err := embedder.EmbedQuery(ctx, projectID)
	if err != nil {
		return false, err
	}
	matches, err := index.Query(ctx, marker, markerSearchK, docchat.VectorFilter{Project: projectID})
	if err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}

func (m *Manager) clear(ctx context.Context, index docchat.VectorIndex, projectID string) error {
	if m.ScopedDelete {
		if scoped, ok := index.(docchat.ScopedDeleter); ok {
			return scoped.DeleteWhere(ctx, docchat.VectorFilter{Project: projectID})
		}
	}
	return index.DeleteAll(ctx)
}

// embed splits texts into batches and embeds them concurrently, keeping
// the output aligned with the input.
func (m *Manager) embed(ctx context.Context, embedder docchat.Embedder, texts []string) ([][]float32, error) {
	batchSize := m.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := m.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			batch, err := embedder.EmbedDocuments(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// RecordID derives a stable record ID from the project and document URL.
func RecordID(projectID, url string) string {
	return projectID + "-" + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

func failed(op string, err error) error {
	msg := err.Error()
	if docchat.ErrorCode(err) != docchat.EINTERNAL {
		msg = docchat.ErrorMessage(err)
	}
	return docchat.Errorf(docchat.EINGEST, "%s: %s", op, msg)
}
