// Package rod renders pages in headless Chrome through go-rod.
package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements docchat.Fetcher at compile time.
var _ docchat.Fetcher = (*Fetcher)(nil)

// Default timeouts.
const (
	DefaultFetchTimeout    = 30 * time.Second
	DefaultSelectorTimeout = 30 * time.Second
)

// Fetcher renders pages in a managed headless browser, one tab per fetch.
type Fetcher struct {
	manager         *BrowserManager
	fetchTimeout    time.Duration
	selectorTimeout time.Duration
	managerOpts     []ManagerOption
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFetchTimeout bounds navigation and load for a single page.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.fetchTimeout = d
	}
}

// WithSelectorTimeout sets the selector wait used when FetchOptions leaves
// it unset.
func WithSelectorTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.selectorTimeout = d
	}
}

// WithManagerOptions passes options through to the BrowserManager.
func WithManagerOptions(opts ...ManagerOption) Option {
	return func(f *Fetcher) {
		f.managerOpts = append(f.managerOpts, opts...)
	}
}

// NewFetcher launches a headless browser and returns a Fetcher using it.
// Close must be called when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		fetchTimeout:    DefaultFetchTimeout,
		selectorTimeout: DefaultSelectorTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}

	manager, err := NewBrowserManager(f.managerOpts...)
	if err != nil {
		return nil, err
	}
	f.manager = manager
	return f, nil
}

// Fetch navigates to url, waits for the load event and, if requested, for
// opts.WaitSelector to appear, then returns the rendered HTML and the final
// URL.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts docchat.FetchOptions) (*docchat.RenderedPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, err := f.manager.Browser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	defer page.Close()
	defer f.manager.IncrementPageCount()

	page = page.Context(ctx)

	nav := page.Timeout(f.fetchTimeout)
	if err := nav.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", url, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", url, err)
	}
	nav.CancelTimeout()

	if opts.WaitSelector != "" {
		timeout := opts.SelectorTimeout
		if timeout <= 0 {
			timeout = f.selectorTimeout
		}
		wait := page.Timeout(timeout)
		_, err := wait.Element(opts.WaitSelector)
		wait.CancelTimeout()
		if err != nil {
			return nil, fmt.Errorf("waiting for selector %q on %s: %w", opts.WaitSelector, url, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading HTML of %s: %w", url, err)
	}

	final := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		final = info.URL
	}

	return &docchat.RenderedPage{URL: final, HTML: html}, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}
