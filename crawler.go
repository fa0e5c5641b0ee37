package docchat

import "context"

// CrawlParams bound a single crawl run.
type CrawlParams struct {
	WebsiteURL      string
	LinkPatterns    []string
	ContentSelector string
	MaxPages        int
}

// CrawlResult holds the documents of a run and its request counts.
type CrawlResult struct {
	Documents []*CrawledDocument
	Finished  int
	Failed    int
}

// CrawlEventType indicates the kind of crawl progress event.
type CrawlEventType int

const (
	CrawlPageCompleted CrawlEventType = iota
	CrawlPageFailed
	CrawlFinished
)

// CrawlEvent reports progress during a crawl run.
type CrawlEvent struct {
	Type     CrawlEventType
	URL      string
	Title    string
	Err      error
	Finished int
	Failed   int
}

// CrawlProgressFunc is a callback for crawl progress.
type CrawlProgressFunc func(event CrawlEvent)

// Crawler walks a website and returns its documents.
type Crawler interface {
	// Crawl runs to completion. Page failures are counted in the result;
	// an error is returned only when the run as a whole cannot proceed.
	Crawl(ctx context.Context, params CrawlParams, progress CrawlProgressFunc) (*CrawlResult, error)
}

// IngestResult summarizes an ingestion.
type IngestResult struct {
	Stored   int
	Replaced bool
	Tokens   int
}

// Ingester writes a crawl's documents into a project's vector index,
// replacing whatever the project previously held.
type Ingester interface {
	Ingest(ctx context.Context, docs []*CrawledDocument, projectID string, index VectorIndexCredentials, embedding EmbeddingCredentials) (*IngestResult, error)
}
