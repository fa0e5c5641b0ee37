package gemini

import (
	"context"
	"sync"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

var (
	_ docchat.Embedder         = (*Embedder)(nil)
	_ docchat.EmbedderProvider = (*Provider)(nil)
)

// Embedder implements docchat.Embedder using the Gemini embedding API.
type Embedder struct {
	models Models
	model  string
}

// NewEmbedder returns an Embedder for model. An empty model uses
// DefaultEmbeddingModel.
func NewEmbedder(models Models, model string) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{models: models, model: model}
}

// EmbedQuery embeds a search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts for storage, splitting them into requests of
// at most 100 texts.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vectors, err := e.embed(ctx, texts[start:end], TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	resp, err := e.models.EmbedContent(ctx, e.model, textContents(texts), &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, docchat.Errorf(docchat.EINTERNAL, "gemini returned %d embeddings for %d texts", got, len(texts))
	}
	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, docchat.Errorf(docchat.EINTERNAL, "gemini returned an empty embedding")
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Provider opens Embedders keyed by API key. Clients are created once per
// key and reused.
type Provider struct {
	// DefaultAPIKey is used when the request carries no key.
	DefaultAPIKey string

	// Model is the embedding model. Empty means DefaultEmbeddingModel.
	Model string

	// NewModels creates the API client for a key. Defaults to NewModels.
	NewModels func(ctx context.Context, apiKey string) (Models, error)

	mu      sync.Mutex
	clients map[string]Models
}

// OpenEmbedder returns an Embedder authorized by creds.
func (p *Provider) OpenEmbedder(ctx context.Context, creds docchat.EmbeddingCredentials) (docchat.Embedder, error) {
	key := creds.APIKey
	if key == "" {
		key = p.DefaultAPIKey
	}
	if key == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "embedding API key required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.clients[key]; ok {
		return NewEmbedder(m, p.Model), nil
	}

	newModels := p.NewModels
	if newModels == nil {
		newModels = func(ctx context.Context, apiKey string) (Models, error) {
			return NewModels(ctx, apiKey)
		}
	}
	m, err := newModels(ctx, key)
	if err != nil {
		return nil, err
	}
	if p.clients == nil {
		p.clients = make(map[string]Models)
	}
	p.clients[key] = m
	return NewEmbedder(m, p.Model), nil
}
