//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Fetcher implements docchat.Fetcher.
var _ docchat.Fetcher = (*rod.Fetcher)(nil)

func serve(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(t *testing.T, opts ...rod.Option) *rod.Fetcher {
	t.Helper()
	fetcher, err := rod.NewFetcher(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fetcher.Close() })
	return fetcher
}

func TestFetcher_Fetch_ReturnsRenderedHTML(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<div id="content">Loading...</div>
<script>
document.getElementById('content').textContent = 'JavaScript Rendered';
</script>
</body>
</html>`)

	page, err := newFetcher(t).Fetch(context.Background(), srv.URL, docchat.FetchOptions{})

	require.NoError(t, err)
	assert.Contains(t, page.HTML, "JavaScript Rendered")
	assert.NotContains(t, page.HTML, "Loading...")
}

func TestFetcher_Fetch_WaitsForSelector(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<!DOCTYPE html>
<html><body>
<script>
setTimeout(function () {
  var el = document.createElement('article');
  el.textContent = 'late content';
  document.body.appendChild(el);
}, 300);
</script>
</body></html>`)

	page, err := newFetcher(t).Fetch(context.Background(), srv.URL, docchat.FetchOptions{
		WaitSelector:    "article",
		SelectorTimeout: 5 * time.Second,
	})

	require.NoError(t, err)
	assert.Contains(t, page.HTML, "late content")
}

func TestFetcher_Fetch_FailsWhenSelectorNeverAppears(t *testing.T) {
	t.Parallel()

	srv := serve(t, `<html><body><p>nothing here</p></body></html>`)

	start := time.Now()
	_, err := newFetcher(t).Fetch(context.Background(), srv.URL, docchat.FetchOptions{
		WaitSelector:    "#never",
		SelectorTimeout: 300 * time.Millisecond,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetcher_Fetch_ReportsFinalURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>new</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newFetcher(t).Fetch(context.Background(), srv.URL+"/old", docchat.FetchOptions{})

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.URL)
}

func TestFetcher_Fetch_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := serve(t, "<html></html>")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFetcher(t).Fetch(ctx, srv.URL, docchat.FetchOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_Fetch_TimeoutTriggersOnSlowPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`<html><body>delayed</body></html>`))
	}))
	defer srv.Close()

	fetcher := newFetcher(t, rod.WithFetchTimeout(100*time.Millisecond))

	_, err := fetcher.Fetch(context.Background(), srv.URL, docchat.FetchOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcher_Close_Idempotent(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)

	require.NoError(t, fetcher.Close())
	require.NoError(t, fetcher.Close())
}

func TestFetcher_Fetch_AfterClose_ReturnsError(t *testing.T) {
	t.Parallel()

	fetcher, err := rod.NewFetcher()
	require.NoError(t, err)
	require.NoError(t, fetcher.Close())

	_, err = fetcher.Fetch(context.Background(), "http://example.com", docchat.FetchOptions{})

	require.Error(t, err)
	assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
	assert.Contains(t, docchat.ErrorMessage(err), "closed")
}
