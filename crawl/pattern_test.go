package crawl_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkMatcher(t *testing.T) {
	t.Parallel()

	t.Run("double star spans path segments", func(t *testing.T) {
		t.Parallel()

		m, err := crawl.NewLinkMatcher("https://docs.example.com", []string{"https://docs.example.com/**"})
		require.NoError(t, err)

		assert.True(t, m.Match("https://docs.example.com/"))
		assert.True(t, m.Match("https://docs.example.com/guide"))
		assert.True(t, m.Match("https://docs.example.com/guide/install/linux"))
		assert.False(t, m.Match("https://blog.example.com/post"))
	})

	t.Run("single star stays within a segment", func(t *testing.T) {
		t.Parallel()

		m, err := crawl.NewLinkMatcher("https://example.com", []string{"https://example.com/docs/*"})
		require.NoError(t, err)

		assert.True(t, m.Match("https://example.com/docs/intro"))
		assert.False(t, m.Match("https://example.com/docs/guide/intro"))
	})

	t.Run("any of several patterns matches", func(t *testing.T) {
		t.Parallel()

		m, err := crawl.NewLinkMatcher("https://example.com", []string{
			"https://example.com/docs/**",
			"https://example.com/api/**",
		})
		require.NoError(t, err)

		assert.True(t, m.Match("https://example.com/docs/a"))
		assert.True(t, m.Match("https://example.com/api/b"))
		assert.False(t, m.Match("https://example.com/blog/c"))
	})

	t.Run("no patterns means same host", func(t *testing.T) {
		t.Parallel()

		m, err := crawl.NewLinkMatcher("https://example.com/start", nil)
		require.NoError(t, err)

		assert.True(t, m.Match("https://example.com/anything/else"))
		assert.False(t, m.Match("https://sub.example.com/"))
	})

	t.Run("rejects malformed pattern", func(t *testing.T) {
		t.Parallel()

		_, err := crawl.NewLinkMatcher("https://example.com", []string{"https://example.com/[a"})

		require.Error(t, err)
		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(crawl.ValidatePatterns([]string{"https://example.com/[a"})))
		assert.NoError(t, crawl.ValidatePatterns([]string{"https://example.com/**"}))
	})
}
