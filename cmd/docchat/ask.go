package main

import (
	"errors"
	"fmt"

	"github.com/fwojciec/docchat"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	req := docchat.QueryRequest{
		Question:    c.Question,
		ProjectID:   c.Project,
		VectorIndex: docchat.VectorIndexCredentials{APIKey: c.IndexKey, IndexName: c.Index},
		Embedding:   docchat.EmbeddingCredentials{APIKey: c.EmbeddingKey},
	}

	var resp *docchat.QueryResponse
	if c.Stream {
		resp = deps.Answerer.Stream(deps.Ctx, req, func(fragment string) {
			fmt.Fprint(deps.Stdout, fragment)
		})
		if resp.Success {
			fmt.Fprintln(deps.Stdout)
		}
	} else {
		resp = deps.Answerer.Answer(deps.Ctx, req)
		if resp.Success {
			fmt.Fprintln(deps.Stdout, *resp.Answer)
		}
	}

	if !resp.Success {
		fmt.Fprintf(deps.Stderr, "error: %s\n", resp.Message)
		return errors.New(resp.Message)
	}
	return nil
}
