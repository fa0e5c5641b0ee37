package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/ingest"
	"github.com/fwojciec/docchat/mock"
	"github.com/fwojciec/docchat/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	indexCreds = docchat.VectorIndexCredentials{IndexName: "docs"}
	embedCreds = docchat.EmbeddingCredentials{APIKey: "key"}
)

// fakeEmbedder maps text to a small deterministic vector and records
// every text it was asked to embed.
type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	queries []string
}

func vectorFor(text string) []float32 {
	var sum int
	for _, r := range text {
		sum += int(r)
	}
	return []float32{float32(len(text)), float32(sum%7 + 1), 1}
}

func (e *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queries = append(e.queries, text)
	return vectorFor(text), nil
}

func (e *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, append([]string(nil), texts...))
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

type fixture struct {
	manager  *ingest.Manager
	index    *sqlite.VectorIndex
	embedder *fakeEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	store := sqlite.NewVectorStore(db)
	index, err := store.Index(indexCreds)
	require.NoError(t, err)

	embedder := &fakeEmbedder{}
	return &fixture{
		manager: &ingest.Manager{
			Indexes: store,
			Embedders: &mock.EmbedderProvider{
				OpenEmbedderFn: func(_ context.Context, _ docchat.EmbeddingCredentials) (docchat.Embedder, error) {
					return embedder, nil
				},
			},
		},
		index:    index,
		embedder: embedder,
	}
}

func (f *fixture) urls(t *testing.T, project string) []string {
	t.Helper()
	matches, err := f.index.Query(context.Background(), []float32{1, 1, 1}, 1000, docchat.VectorFilter{Project: project})
	require.NoError(t, err)
	var urls []string
	for _, m := range matches {
		urls = append(urls, m.Metadata.URL)
	}
	sort.Strings(urls)
	return urls
}

func docs(urls ...string) []*docchat.CrawledDocument {
	out := make([]*docchat.CrawledDocument, len(urls))
	for i, u := range urls {
		out[i] = &docchat.CrawledDocument{Title: u, URL: u, Text: "content of " + u}
	}
	return out
}

func TestManager_Ingest(t *testing.T) {
	t.Parallel()

	t.Run("stores documents for a new project", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		result, err := f.manager.Ingest(context.Background(), docs("https://a.com/1", "https://a.com/2"), "p", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Stored)
		assert.False(t, result.Replaced)
		assert.Equal(t, []string{"https://a.com/1", "https://a.com/2"}, f.urls(t, "p"))
		assert.Empty(t, f.embedder.queries, "empty index needs no marker search")
	})

	t.Run("second ingest fully replaces the first", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()

		_, err := f.manager.Ingest(ctx, docs("https://a.com/A", "https://a.com/B"), "p", indexCreds, embedCreds)
		require.NoError(t, err)

		result, err := f.manager.Ingest(ctx, docs("https://a.com/C"), "p", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.True(t, result.Replaced)
		assert.Equal(t, []string{"https://a.com/C"}, f.urls(t, "p"))
		assert.Equal(t, []string{"p"}, f.embedder.queries, "marker search embeds the project ID")
	})

	t.Run("default replace wipes other projects in the index", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()

		_, err := f.manager.Ingest(ctx, docs("https://a.com/1"), "p1", indexCreds, embedCreds)
		require.NoError(t, err)
		_, err = f.manager.Ingest(ctx, docs("https://b.com/1"), "p2", indexCreds, embedCreds)
		require.NoError(t, err)

		_, err = f.manager.Ingest(ctx, docs("https://a.com/2"), "p1", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.com/2"}, f.urls(t, "p1"))
		assert.Empty(t, f.urls(t, "p2"))
	})

	t.Run("scoped delete keeps other projects", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.manager.ScopedDelete = true
		ctx := context.Background()

		_, err := f.manager.Ingest(ctx, docs("https://a.com/1"), "p1", indexCreds, embedCreds)
		require.NoError(t, err)
		_, err = f.manager.Ingest(ctx, docs("https://b.com/1"), "p2", indexCreds, embedCreds)
		require.NoError(t, err)

		result, err := f.manager.Ingest(ctx, docs("https://a.com/2"), "p1", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.True(t, result.Replaced)
		assert.Equal(t, []string{"https://a.com/2"}, f.urls(t, "p1"))
		assert.Equal(t, []string{"https://b.com/1"}, f.urls(t, "p2"))
	})

	t.Run("empty text is stored as a single space", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		in := []*docchat.CrawledDocument{{Title: "Empty", URL: "https://a.com/empty", Text: ""}}

		_, err := f.manager.Ingest(context.Background(), in, "p", indexCreds, embedCreds)

		require.NoError(t, err)
		require.Len(t, f.embedder.batches, 1)
		assert.Equal(t, []string{" "}, f.embedder.batches[0])

		matches, err := f.index.Query(context.Background(), vectorFor(" "), 1, docchat.VectorFilter{Project: "p"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, " ", matches[0].Text)
	})

	t.Run("record IDs are derived from project and URL", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		_, err := f.manager.Ingest(context.Background(), docs("https://a.com/1"), "p", indexCreds, embedCreds)

		require.NoError(t, err)
		matches, err := f.index.Query(context.Background(), []float32{1, 1, 1}, 1, docchat.VectorFilter{Project: "p"})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, ingest.RecordID("p", "https://a.com/1"), matches[0].ID)
		assert.Regexp(t, `^p-[0-9a-f]+$`, matches[0].ID)
	})

	t.Run("batches embedding requests and keeps order", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.manager.BatchSize = 2
		var urls []string
		for i := range 5 {
			urls = append(urls, fmt.Sprintf("https://a.com/%d", i))
		}

		result, err := f.manager.Ingest(context.Background(), docs(urls...), "p", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.Equal(t, 5, result.Stored)
		assert.Len(t, f.embedder.batches, 3)

		for _, u := range urls {
			matches, err := f.index.Query(context.Background(), vectorFor("content of "+u), 5, docchat.VectorFilter{Project: "p"})
			require.NoError(t, err)
			var found bool
			for _, m := range matches {
				if m.Metadata.URL == u {
					found = true
					assert.Equal(t, "content of "+u, m.Text)
				}
			}
			assert.True(t, found, u)
		}
	})

	t.Run("no documents clears the project", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		ctx := context.Background()
		_, err := f.manager.Ingest(ctx, docs("https://a.com/1"), "p", indexCreds, embedCreds)
		require.NoError(t, err)

		result, err := f.manager.Ingest(ctx, nil, "p", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.Equal(t, 0, result.Stored)
		assert.Empty(t, f.urls(t, "p"))
	})

	t.Run("counts tokens when configured", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.manager.Tokens = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(text), nil
			},
		}

		result, err := f.manager.Ingest(context.Background(), []*docchat.CrawledDocument{
			{URL: "https://a.com/1", Text: "abc"},
			{URL: "https://a.com/2", Text: "de"},
		}, "p", indexCreds, embedCreds)

		require.NoError(t, err)
		assert.Equal(t, 5, result.Tokens)
	})
}

func TestManager_Ingest_Errors(t *testing.T) {
	t.Parallel()

	okIndex := func() *mock.VectorIndex {
		return &mock.VectorIndex{
			DescribeStatsFn: func(context.Context, docchat.VectorFilter) (*docchat.IndexStats, error) {
				return &docchat.IndexStats{}, nil
			},
			UpsertFn: func(context.Context, []docchat.VectorRecord) error { return nil },
		}
	}
	okEmbedder := func() *mock.Embedder {
		return &mock.Embedder{
			EmbedDocumentsFn: func(_ context.Context, texts []string) ([][]float32, error) {
				return make([][]float32, len(texts)), nil
			},
		}
	}
	manager := func(index docchat.VectorIndex, embedder docchat.Embedder, indexErr error) *ingest.Manager {
		return &ingest.Manager{
			Indexes: &mock.VectorIndexProvider{
				OpenIndexFn: func(context.Context, docchat.VectorIndexCredentials) (docchat.VectorIndex, error) {
					return index, indexErr
				},
			},
			Embedders: &mock.EmbedderProvider{
				OpenEmbedderFn: func(context.Context, docchat.EmbeddingCredentials) (docchat.Embedder, error) {
					return embedder, nil
				},
			},
		}
	}

	tests := []struct {
		name    string
		manager func() *ingest.Manager
		wantMsg string
	}{
		{
			name: "index provider failure",
			manager: func() *ingest.Manager {
				return manager(nil, okEmbedder(), docchat.Errorf(docchat.EINVALID, "bad api key"))
			},
			wantMsg: "open index: bad api key",
		},
		{
			name: "stats failure",
			manager: func() *ingest.Manager {
				idx := okIndex()
				idx.DescribeStatsFn = func(context.Context, docchat.VectorFilter) (*docchat.IndexStats, error) {
					return nil, errors.New("unreachable")
				}
				return manager(idx, okEmbedder(), nil)
			},
			wantMsg: "check existing records: unreachable",
		},
		{
			name: "embedding failure",
			manager: func() *ingest.Manager {
				emb := okEmbedder()
				emb.EmbedDocumentsFn = func(context.Context, []string) ([][]float32, error) {
					return nil, errors.New("quota exceeded")
				}
				return manager(okIndex(), emb, nil)
			},
			wantMsg: "embed documents: quota exceeded",
		},
		{
			name: "short embedding batch",
			manager: func() *ingest.Manager {
				emb := okEmbedder()
				emb.EmbedDocumentsFn = func(context.Context, []string) ([][]float32, error) {
					return nil, nil
				}
				return manager(okIndex(), emb, nil)
			},
			wantMsg: "embed documents: embedder returned 0 vectors for 1 texts",
		},
		{
			name: "upsert failure",
			manager: func() *ingest.Manager {
				idx := okIndex()
				idx.UpsertFn = func(context.Context, []docchat.VectorRecord) error {
					return errors.New("disk full")
				}
				return manager(idx, okEmbedder(), nil)
			},
			wantMsg: "upsert records: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.manager().Ingest(context.Background(), docs("https://a.com/1"), "p", indexCreds, embedCreds)

			require.Error(t, err)
			assert.Equal(t, docchat.EINGEST, docchat.ErrorCode(err))
			assert.Equal(t, tt.wantMsg, docchat.ErrorMessage(err))
		})
	}

	t.Run("requires project ID", func(t *testing.T) {
		t.Parallel()

		_, err := manager(okIndex(), okEmbedder(), nil).Ingest(context.Background(), nil, "", indexCreds, embedCreds)

		assert.Equal(t, docchat.EINGEST, docchat.ErrorCode(err))
	})
}
