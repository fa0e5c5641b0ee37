package docchat

import (
	"context"
	"time"
)

// FetchOptions tune a single page fetch.
type FetchOptions struct {
	// WaitSelector, when set, must match an element before the page is
	// considered rendered.
	WaitSelector string

	// SelectorTimeout bounds the wait for WaitSelector. Zero means the
	// fetcher's default.
	SelectorTimeout time.Duration
}

// RenderedPage is the HTML of a page after rendering.
type RenderedPage struct {
	// URL is the final URL after redirects.
	URL  string
	HTML string
}

// Fetcher retrieves rendered HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch navigates to the URL, waits for it to render and returns the
	// resulting page. It fails if opts.WaitSelector never appears.
	Fetch(ctx context.Context, url string, opts FetchOptions) (*RenderedPage, error)

	// Close releases fetcher resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
