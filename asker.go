package docchat

import "context"

// QueryRequest asks a question against a project's knowledge base.
type QueryRequest struct {
	Question    string                 `json:"question"`
	ProjectID   string                 `json:"projectId"`
	VectorIndex VectorIndexCredentials `json:"vectorIndex"`
	Embedding   EmbeddingCredentials   `json:"embedding"`
}

// Validate returns an error if the request contains invalid fields.
func (q *QueryRequest) Validate() error {
	if q.Question == "" {
		return Errorf(EINVALID, "question required")
	}
	if q.ProjectID == "" {
		return Errorf(EINVALID, "project ID required")
	}
	if err := q.VectorIndex.Validate(); err != nil {
		return err
	}
	return q.Embedding.Validate()
}

// QueryResponse is the structured outcome of a question. Answer is nil
// whenever Success is false.
type QueryResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Answer  *string `json:"answer"`
}

// Answerer answers natural language questions from a project's knowledge
// base. Neither method returns an error: failures are reported through the
// response.
type Answerer interface {
	// Answer returns the complete answer.
	Answer(ctx context.Context, req QueryRequest) *QueryResponse

	// Stream calls onToken with each answer fragment as it arrives and
	// returns the assembled response.
	Stream(ctx context.Context, req QueryRequest, onToken func(string)) *QueryResponse
}
