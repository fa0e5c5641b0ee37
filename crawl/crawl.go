// Package crawl walks a website breadth-first and collects the text of
// every page it visits.
package crawl

import (
	"context"
	"net/url"
	"time"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.Crawler = (*Crawler)(nil)

// DefaultSelectorTimeout bounds the wait for a content selector to appear.
const DefaultSelectorTimeout = 30 * time.Second

// Frontier configuration.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for deduplication.
	frontierFalsePositiveRate = 0.001
)

// Crawler runs bounded, strictly sequential breadth-first crawls.
// Pages are never fetched concurrently within a run.
type Crawler struct {
	Fetcher   docchat.Fetcher
	Extractor docchat.Extractor

	// RateLimiter, if set, spaces out navigations per host.
	RateLimiter docchat.DomainLimiter

	// RetryDelays are the waits between attempts for a failing page.
	// Nil means DefaultRetryDelays.
	RetryDelays []time.Duration

	// SelectorTimeout bounds the content selector wait.
	// Zero means DefaultSelectorTimeout.
	SelectorTimeout time.Duration

	// Logf, if set, receives retry messages.
	Logf LogFunc
}

// Crawl visits params.WebsiteURL and the links it leads to that match
// params.LinkPatterns, up to params.MaxPages requests in total.
//
// A page that still fails after its retries is counted in Failed and left
// out of the result. The returned documents are unique by URL and in visit
// order. An ECRAWL error is returned when the run itself cannot proceed: a
// bad start URL or pattern, a canceled context, or no page rendered at all.
func (c *Crawler) Crawl(ctx context.Context, params docchat.CrawlParams, progress docchat.CrawlProgressFunc) (*docchat.CrawlResult, error) {
	start, err := url.Parse(params.WebsiteURL)
	if err != nil || !start.IsAbs() {
		return nil, docchat.Errorf(docchat.ECRAWL, "invalid start URL %q", params.WebsiteURL)
	}
	if params.MaxPages < 1 {
		return nil, docchat.Errorf(docchat.ECRAWL, "max pages must be at least 1")
	}
	matcher, err := NewLinkMatcher(params.WebsiteURL, params.LinkPatterns)
	if err != nil {
		return nil, docchat.Errorf(docchat.ECRAWL, "%s", docchat.ErrorMessage(err))
	}

	emit := func(e docchat.CrawlEvent) {
		if progress != nil {
			progress(e)
		}
	}

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	defer frontier.Drop()
	frontier.Push(start.String())

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}
	opts := docchat.FetchOptions{
		WaitSelector:    params.ContentSelector,
		SelectorTimeout: c.selectorTimeout(),
	}
	fetch := func(ctx context.Context, u string) (*docchat.RenderedPage, error) {
		return c.Fetcher.Fetch(ctx, u, opts)
	}

	result := &docchat.CrawlResult{}
	stored := make(map[string]bool)

	for processed := 0; processed < params.MaxPages; processed++ {
		next, ok := frontier.Pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, interrupted(err)
		}

		if c.RateLimiter != nil {
			if u, err := url.Parse(next); err == nil {
				if err := c.RateLimiter.Wait(ctx, u.Host); err != nil {
					return nil, interrupted(err)
				}
			}
		}

		page, err := FetchWithRetryDelays(ctx, next, fetch, c.Logf, delays)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, interrupted(ctxErr)
			}
			result.Failed++
			emit(docchat.CrawlEvent{Type: docchat.CrawlPageFailed, URL: next, Err: err, Finished: result.Finished, Failed: result.Failed})
			continue
		}

		loaded := page.URL
		if loaded == "" {
			loaded = next
		}

		extracted, err := c.Extractor.Extract(page.HTML, loaded, params.ContentSelector)
		if err != nil {
			result.Failed++
			emit(docchat.CrawlEvent{Type: docchat.CrawlPageFailed, URL: loaded, Err: err, Finished: result.Finished, Failed: result.Failed})
			continue
		}

		for _, link := range extracted.Links {
			if matcher.Match(link) {
				frontier.Push(link)
			}
		}

		result.Finished++
		if !stored[loaded] {
			stored[loaded] = true
			result.Documents = append(result.Documents, &docchat.CrawledDocument{
				Title: extracted.Title,
				URL:   loaded,
				Text:  extracted.Text,
			})
		}
		emit(docchat.CrawlEvent{Type: docchat.CrawlPageCompleted, URL: loaded, Title: extracted.Title, Finished: result.Finished, Failed: result.Failed})
	}

	if result.Finished == 0 {
		return nil, docchat.Errorf(docchat.ECRAWL, "no page could be rendered from %s (%d failed)", params.WebsiteURL, result.Failed)
	}

	emit(docchat.CrawlEvent{Type: docchat.CrawlFinished, Finished: result.Finished, Failed: result.Failed})
	return result, nil
}

func (c *Crawler) selectorTimeout() time.Duration {
	if c.SelectorTimeout > 0 {
		return c.SelectorTimeout
	}
	return DefaultSelectorTimeout
}

func interrupted(err error) error {
	return docchat.Errorf(docchat.ECRAWL, "crawl interrupted: %v", err)
}
