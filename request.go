package docchat

import (
	"encoding/json"
	"net/url"
	"strings"
)

// CrawlRequest describes one crawl-to-knowledge-base run for a project.
// It is immutable once enqueued.
type CrawlRequest struct {
	WebsiteURL      string                 `json:"websiteUrl"`
	LinkPattern     Patterns               `json:"match"`
	ContentSelector string                 `json:"cssSelector,omitempty"`
	MaxPages        int                    `json:"maxPagesToCrawl"`
	ProjectID       string                 `json:"projectId"`
	VectorIndex     VectorIndexCredentials `json:"vectorIndex"`
	Embedding       EmbeddingCredentials   `json:"embedding"`
}

// UnmarshalJSON accepts the credentials either nested under vectorIndex and
// embedding or as the flat submission fields pineconeApiKey,
// pineconeEnvironment, pineconeIndexName and openaiApiKey. Nested values win.
func (r *CrawlRequest) UnmarshalJSON(data []byte) error {
	type plain CrawlRequest
	var aux struct {
		plain
		PineconeAPIKey      string `json:"pineconeApiKey"`
		PineconeEnvironment string `json:"pineconeEnvironment"`
		PineconeIndexName   string `json:"pineconeIndexName"`
		OpenAIAPIKey        string `json:"openaiApiKey"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = CrawlRequest(aux.plain)
	if r.VectorIndex.APIKey == "" {
		r.VectorIndex.APIKey = aux.PineconeAPIKey
	}
	if r.VectorIndex.Environment == "" {
		r.VectorIndex.Environment = aux.PineconeEnvironment
	}
	if r.VectorIndex.IndexName == "" {
		r.VectorIndex.IndexName = aux.PineconeIndexName
	}
	if r.Embedding.APIKey == "" {
		r.Embedding.APIKey = aux.OpenAIAPIKey
	}
	return nil
}

// Redacted returns a copy of r with its credential keys masked.
func (r *CrawlRequest) Redacted() *CrawlRequest {
	c := *r
	c.LinkPattern = append(Patterns(nil), r.LinkPattern...)
	c.VectorIndex.APIKey = redact(r.VectorIndex.APIKey)
	c.Embedding.APIKey = redact(r.Embedding.APIKey)
	return &c
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	return "REDACTED"
}

// Validate returns an error if the request contains invalid fields.
// Link patterns are only checked for emptiness here; compiling them is the
// crawler's concern.
func (r *CrawlRequest) Validate() error {
	if r.ProjectID == "" {
		return Errorf(EINVALID, "project ID required")
	}
	if r.WebsiteURL == "" {
		return Errorf(EINVALID, "website URL required")
	}
	u, err := url.Parse(r.WebsiteURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Errorf(EINVALID, "website URL must be absolute: %q", r.WebsiteURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Errorf(EINVALID, "website URL must use http or https: %q", r.WebsiteURL)
	}
	if r.MaxPages < 1 {
		return Errorf(EINVALID, "max pages must be at least 1")
	}
	for _, p := range r.LinkPattern {
		if strings.TrimSpace(p) == "" {
			return Errorf(EINVALID, "link pattern must not be empty")
		}
	}
	if err := r.VectorIndex.Validate(); err != nil {
		return err
	}
	return r.Embedding.Validate()
}

// Patterns is a list of glob patterns. In JSON it may be written either as a
// single string or as a list of strings.
type Patterns []string

// UnmarshalJSON accepts a string or a list of strings.
func (p *Patterns) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*p = nil
			return nil
		}
		*p = Patterns{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return Errorf(EINVALID, "match must be a string or a list of strings")
	}
	*p = list
	return nil
}

// VectorIndexCredentials identify and authorize access to a vector index.
type VectorIndexCredentials struct {
	APIKey      string `json:"apiKey,omitempty"`
	Environment string `json:"environment,omitempty"`
	IndexName   string `json:"indexName"`
}

// Validate returns an error if the credentials cannot address an index.
func (c VectorIndexCredentials) Validate() error {
	if c.IndexName == "" {
		return Errorf(EINVALID, "vector index name required")
	}
	return nil
}

// EmbeddingCredentials authorize access to an embedding provider.
// An empty APIKey defers to the provider's configured default key.
type EmbeddingCredentials struct {
	APIKey string `json:"apiKey,omitempty"`
}

// Validate returns an error if the credentials are malformed.
func (c EmbeddingCredentials) Validate() error {
	if c.APIKey != strings.TrimSpace(c.APIKey) {
		return Errorf(EINVALID, "embedding API key must not contain surrounding whitespace")
	}
	return nil
}
