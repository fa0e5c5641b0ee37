package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/config"
	"github.com/fwojciec/docchat/jobs"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx            context.Context
	Stdin          io.Reader
	Stdout         io.Writer
	Stderr         io.Writer
	Logger         *slog.Logger
	Config         config.Config
	Projects       docchat.ProjectService
	ProgressLog    docchat.ProgressLog
	Jobs           *jobs.Orchestrator
	Answerer       docchat.Answerer
	MetricsHandler http.Handler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `help:"Path to a YAML config file" env:"DOCCHAT_CONFIG"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Serve   ServeCmd   `cmd:"" help:"Run the crawl worker and serve metrics"`
	Submit  SubmitCmd  `cmd:"" help:"Queue a crawl request and print its handle"`
	Crawl   CrawlCmd   `cmd:"" help:"Run a crawl request in this process and wait for it"`
	Ask     AskCmd     `cmd:"" help:"Ask a question about a project's pages"`
	Status  StatusCmd  `cmd:"" help:"Show a project's status"`
	Job     JobCmd     `cmd:"" help:"Show a queued job"`
	Logs    LogsCmd    `cmd:"" help:"Print a project's progress log"`
	Project ProjectCmd `cmd:"" help:"Manage projects"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct{}

// SubmitCmd is the "submit" subcommand.
type SubmitCmd struct {
	RequestFlags `embed:""`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	RequestFlags `embed:""`
}

// RequestFlags describe a crawl request, either as a JSON file or as flags.
type RequestFlags struct {
	File         string   `arg:"" optional:"" help:"JSON request file, or - for stdin"`
	URL          string   `name:"url" help:"Website to crawl"`
	Match        []string `sep:"none" help:"Glob pattern for links to follow (repeatable)"`
	Selector     string   `help:"CSS selector holding the page content"`
	MaxPages     int      `default:"50" help:"Maximum number of pages to request"`
	ProjectID    string   `name:"project" help:"Project ID"`
	Index        string   `default:"docchat" help:"Vector index name"`
	IndexKey     string   `help:"Vector index API key"`
	EmbeddingKey string   `help:"Embedding API key (defaults to gemini.api_key)"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Project      string `arg:"" help:"Project ID"`
	Question     string `arg:"" help:"Question to ask"`
	Stream       bool   `short:"s" help:"Print the answer as it is generated"`
	Index        string `default:"docchat" help:"Vector index name"`
	IndexKey     string `help:"Vector index API key"`
	EmbeddingKey string `help:"Embedding API key (defaults to gemini.api_key)"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	Project string `arg:"" help:"Project ID"`
}

// JobCmd is the "job" subcommand.
type JobCmd struct {
	ID string `arg:"" help:"Job ID"`
}

// LogsCmd is the "logs" subcommand.
type LogsCmd struct {
	Project string `arg:"" help:"Project ID"`
	Limit   int    `short:"n" default:"100" help:"Maximum number of events to print"`
}

// ProjectCmd groups project management subcommands.
type ProjectCmd struct {
	Add ProjectAddCmd `cmd:"" help:"Create a project"`
}

// ProjectAddCmd is the "project add" subcommand.
type ProjectAddCmd struct {
	ID  string `arg:"" help:"Project ID"`
	URL string `arg:"" help:"Website the project is built from"`
}

// Request returns the crawl request described by the file or the flags.
func (f *RequestFlags) Request(stdin io.Reader) (*docchat.CrawlRequest, error) {
	if f.File == "" {
		return &docchat.CrawlRequest{
			WebsiteURL:      f.URL,
			LinkPattern:     f.Match,
			ContentSelector: f.Selector,
			MaxPages:        f.MaxPages,
			ProjectID:       f.ProjectID,
			VectorIndex:     docchat.VectorIndexCredentials{APIKey: f.IndexKey, IndexName: f.Index},
			Embedding:       docchat.EmbeddingCredentials{APIKey: f.EmbeddingKey},
		}, nil
	}

	r := stdin
	if f.File != "-" {
		file, err := os.Open(f.File)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		r = file
	}
	var req docchat.CrawlRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		var e *docchat.Error
		if errors.As(err, &e) {
			return nil, err
		}
		return nil, docchat.Errorf(docchat.EINVALID, "invalid request JSON: %v", err)
	}
	return &req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(deps *Dependencies, err error) error {
	fmt.Fprintf(deps.Stderr, "error: %s\n", message(err))
	return err
}

// message prefers the domain message and falls back to the raw error text.
func message(err error) string {
	var e *docchat.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
