package crawl_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/crawl"
	"github.com/fwojciec/docchat/goquery"
	"github.com/fwojciec/docchat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// site is a fake website served by a mock fetcher.
type site struct {
	mu        sync.Mutex
	pages     map[string]string
	redirects map[string]string
	fetches   map[string]int
}

func newSite() *site {
	return &site{
		pages:     make(map[string]string),
		redirects: make(map[string]string),
		fetches:   make(map[string]int),
	}
}

// page registers a page whose body holds text and links to the given paths.
func (s *site) page(url, title, text string, links ...string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><main>%s</main>", title, text)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	s.pages[url] = b.String()
}

func (s *site) count(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[url]
}

func (s *site) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, url string, opts docchat.FetchOptions) (*docchat.RenderedPage, error) {
			s.mu.Lock()
			s.fetches[url]++
			s.mu.Unlock()

			final := url
			if to, ok := s.redirects[url]; ok {
				final = to
			}
			html, ok := s.pages[final]
			if !ok {
				return nil, fmt.Errorf("navigation failed: 404 %s", url)
			}
			if opts.WaitSelector != "" {
				found, err := goquery.HasSelector(html, opts.WaitSelector)
				if err != nil {
					return nil, err
				}
				if !found {
					return nil, fmt.Errorf("timed out waiting for %q", opts.WaitSelector)
				}
			}
			return &docchat.RenderedPage{URL: final, HTML: html}, nil
		},
		CloseFn: func() error { return nil },
	}
}

func newCrawler(s *site) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher:     s.fetcher(),
		Extractor:   goquery.NewExtractor(),
		RetryDelays: []time.Duration{0, 0},
	}
}

func urls(docs []*docchat.CrawledDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.URL
	}
	return out
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("walks breadth first and stores one document per URL", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://docs.example.com", "Home", "welcome", "/a", "/b")
		s.page("https://docs.example.com/a", "A", "alpha", "/", "/b", "/a/deep")
		s.page("https://docs.example.com/b", "B", "beta", "/a", "/")
		s.page("https://docs.example.com/a/deep", "Deep", "deep", "/a")
		s.page("https://docs.example.com/", "Home", "welcome", "/a")

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:   "https://docs.example.com",
			LinkPatterns: []string{"https://docs.example.com/**"},
			MaxPages:     50,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://docs.example.com",
			"https://docs.example.com/a",
			"https://docs.example.com/b",
			"https://docs.example.com/",
			"https://docs.example.com/a/deep",
		}, urls(result.Documents))
		assert.Equal(t, 5, result.Finished)
		assert.Equal(t, 0, result.Failed)
		for _, u := range urls(result.Documents) {
			assert.Equal(t, 1, s.count(u), "each URL fetched once: %s", u)
		}
	})

	t.Run("never visits more than max pages", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		var links []string
		for i := range 20 {
			links = append(links, fmt.Sprintf("/p%d", i))
			s.page(fmt.Sprintf("https://docs.example.com/p%d", i), "P", "text")
		}
		s.page("https://docs.example.com", "Home", "home", links...)

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:   "https://docs.example.com",
			LinkPatterns: []string{"https://docs.example.com/**"},
			MaxPages:     5,
		}, nil)

		require.NoError(t, err)
		assert.Len(t, result.Documents, 5)
		assert.Equal(t, 5, result.Finished+result.Failed)
	})

	t.Run("failed requests count toward max pages", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://docs.example.com", "Home", "home", "/missing1", "/missing2", "/ok")
		s.page("https://docs.example.com/ok", "OK", "ok")

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:   "https://docs.example.com",
			LinkPatterns: []string{"https://docs.example.com/**"},
			MaxPages:     3,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Finished)
		assert.Equal(t, 2, result.Failed)
		assert.Equal(t, []string{"https://docs.example.com"}, urls(result.Documents))
	})

	t.Run("page without content selector fails alone after retries", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages["https://docs.example.com"] = `<html><head><title>Home</title></head><body><div class="doc">home text</div><a href="/broken">b</a><a href="/fine">f</a></body></html>`
		s.pages["https://docs.example.com/broken"] = `<html><head><title>Broken</title></head><body><p>no doc div</p></body></html>`
		s.pages["https://docs.example.com/fine"] = `<html><head><title>Fine</title></head><body><div class="doc">fine text</div></body></html>`

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:      "https://docs.example.com",
			LinkPatterns:    []string{"https://docs.example.com/**"},
			ContentSelector: "div.doc",
			MaxPages:        10,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Finished)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 3, s.count("https://docs.example.com/broken"), "one attempt plus two retries")
		require.Len(t, result.Documents, 2)
		assert.Equal(t, "home text", result.Documents[0].Text)
		assert.Equal(t, "fine text", result.Documents[1].Text)
	})

	t.Run("only follows links matching the patterns", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://example.com/docs", "Docs", "docs", "/docs/a", "/blog/post", "https://other.org/docs/x")
		s.page("https://example.com/docs/a", "A", "a")
		s.page("https://example.com/blog/post", "Post", "post")

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:   "https://example.com/docs",
			LinkPatterns: []string{"https://example.com/docs/**"},
			MaxPages:     10,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/docs", "https://example.com/docs/a"}, urls(result.Documents))
		assert.Zero(t, s.count("https://example.com/blog/post"))
	})

	t.Run("without patterns stays on the start host", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://example.com", "Home", "home", "/about", "https://other.org/")
		s.page("https://example.com/about", "About", "about")
		s.page("https://other.org/", "Other", "other")

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "https://example.com",
			MaxPages:   10,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com", "https://example.com/about"}, urls(result.Documents))
	})

	t.Run("redirects to an already stored URL are not stored twice", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://example.com", "Home", "home", "/old", "/new")
		s.page("https://example.com/new", "New", "new")
		s.redirects["https://example.com/old"] = "https://example.com/new"

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "https://example.com",
			MaxPages:   10,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com", "https://example.com/new"}, urls(result.Documents))
		assert.Equal(t, 3, result.Finished)
	})

	t.Run("keeps pages with empty text", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages["https://example.com"] = `<html><head><title>Blank</title></head><body></body></html>`

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "https://example.com",
			MaxPages:   1,
		}, nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "Blank", result.Documents[0].Title)
		assert.Empty(t, result.Documents[0].Text)
	})

	t.Run("normalizes whitespace in text", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.pages["https://example.com"] = "<html><body><main>line one\n\n   line\ttwo</main></body></html>"

		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:      "https://example.com",
			ContentSelector: "main",
			MaxPages:        1,
		}, nil)

		require.NoError(t, err)
		require.Len(t, result.Documents, 1)
		assert.Equal(t, "line one line two", result.Documents[0].Text)
	})

	t.Run("reports each page and a final summary", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		s.page("https://example.com", "Home", "home", "/a", "/gone")
		s.page("https://example.com/a", "A", "a")

		var events []docchat.CrawlEvent
		_, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "https://example.com",
			MaxPages:   10,
		}, func(e docchat.CrawlEvent) {
			events = append(events, e)
		})

		require.NoError(t, err)
		require.Len(t, events, 4)
		assert.Equal(t, docchat.CrawlPageCompleted, events[0].Type)
		assert.Equal(t, "Home", events[0].Title)
		assert.Equal(t, docchat.CrawlPageCompleted, events[1].Type)
		assert.Equal(t, docchat.CrawlPageFailed, events[2].Type)
		assert.Equal(t, "https://example.com/gone", events[2].URL)
		assert.Error(t, events[2].Err)
		assert.Equal(t, docchat.CrawlFinished, events[3].Type)
		assert.Equal(t, 2, events[3].Finished)
		assert.Equal(t, 1, events[3].Failed)
	})

	t.Run("fails the run when no page renders", func(t *testing.T) {
		t.Parallel()

		s := newSite()
		var events []docchat.CrawlEvent
		result, err := newCrawler(s).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "https://down.example.com",
			MaxPages:   5,
		}, func(e docchat.CrawlEvent) {
			events = append(events, e)
		})

		require.Error(t, err)
		assert.Nil(t, result)
		assert.Equal(t, docchat.ECRAWL, docchat.ErrorCode(err))
		assert.Equal(t, 3, s.count("https://down.example.com"))
		require.Len(t, events, 1)
		assert.Equal(t, docchat.CrawlPageFailed, events[0].Type)
	})

	t.Run("rejects invalid start URL", func(t *testing.T) {
		t.Parallel()

		_, err := newCrawler(newSite()).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL: "not a url",
			MaxPages:   5,
		}, nil)

		require.Error(t, err)
		assert.Equal(t, docchat.ECRAWL, docchat.ErrorCode(err))
	})

	t.Run("rejects malformed pattern", func(t *testing.T) {
		t.Parallel()

		_, err := newCrawler(newSite()).Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:   "https://example.com",
			LinkPatterns: []string{"https://example.com/[x"},
			MaxPages:     5,
		}, nil)

		require.Error(t, err)
		assert.Equal(t, docchat.ECRAWL, docchat.ErrorCode(err))
	})

	t.Run("canceled context aborts the run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newSite()
		s.page("https://example.com", "Home", "home")

		_, err := newCrawler(s).Crawl(ctx, docchat.CrawlParams{
			WebsiteURL: "https://example.com",
			MaxPages:   5,
		}, nil)

		require.Error(t, err)
		assert.Equal(t, docchat.ECRAWL, docchat.ErrorCode(err))
	})

	t.Run("passes selector and timeout to the fetcher", func(t *testing.T) {
		t.Parallel()

		var got docchat.FetchOptions
		c := &crawl.Crawler{
			Fetcher: &mock.Fetcher{
				FetchFn: func(_ context.Context, url string, opts docchat.FetchOptions) (*docchat.RenderedPage, error) {
					got = opts
					return &docchat.RenderedPage{URL: url, HTML: "<html><body><div id=c>x</div></body></html>"}, nil
				},
			},
			Extractor:       goquery.NewExtractor(),
			SelectorTimeout: 5 * time.Second,
		}

		_, err := c.Crawl(context.Background(), docchat.CrawlParams{
			WebsiteURL:      "https://example.com",
			ContentSelector: "#c",
			MaxPages:        1,
		}, nil)

		require.NoError(t, err)
		assert.Equal(t, "#c", got.WaitSelector)
		assert.Equal(t, 5*time.Second, got.SelectorTimeout)
	})
}
