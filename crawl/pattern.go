package crawl

import (
	"net/url"

	"github.com/fwojciec/docchat"
	"github.com/gobwas/glob"
)

// LinkMatcher decides which discovered links are eligible for crawling.
//
// Patterns are globs over the absolute URL with '/' as separator: '*' stays
// within one path segment and '**' spans any number of them. With no
// patterns, links on the start URL's host are eligible.
type LinkMatcher struct {
	globs []glob.Glob
	host  string
}

// NewLinkMatcher compiles patterns for a crawl starting at startURL.
// Returns EINVALID if a pattern does not compile.
func NewLinkMatcher(startURL string, patterns []string) (*LinkMatcher, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, docchat.Errorf(docchat.EINVALID, "invalid start URL: %v", err)
	}

	m := &LinkMatcher{host: u.Host}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, docchat.Errorf(docchat.EINVALID, "invalid link pattern %q: %v", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// ValidatePatterns reports the first pattern that does not compile.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			return docchat.Errorf(docchat.EINVALID, "invalid link pattern %q: %v", p, err)
		}
	}
	return nil
}

// Match reports whether link should be enqueued.
func (m *LinkMatcher) Match(link string) bool {
	if len(m.globs) == 0 {
		u, err := url.Parse(link)
		return err == nil && u.Host == m.host
	}
	for _, g := range m.globs {
		if g.Match(link) {
			return true
		}
	}
	return false
}
