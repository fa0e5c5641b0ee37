// Package goquery implements docchat.Extractor on top of goquery.
package goquery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docchat"
)

var _ docchat.Extractor = (*Extractor)(nil)

// Extractor pulls the title, text and links out of rendered HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses html and returns its title, normalized text and links.
// With a selector the text is the text content of the first match, or empty
// if nothing matches. Without one it is the text content of <body>.
func (e *Extractor) Extract(html, pageURL, selector string) (*docchat.Extraction, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, docchat.Errorf(docchat.EINVALID, "invalid page URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docchat.Errorf(docchat.EINVALID, "failed to parse HTML: %v", err)
	}

	var text string
	if selector != "" {
		text = doc.Find(selector).First().Text()
	} else {
		text = doc.Find("body").First().Text()
	}

	return &docchat.Extraction{
		Title: strings.TrimSpace(NormalizeText(doc.Find("title").First().Text())),
		Text:  NormalizeText(text),
		Links: extractLinks(doc, documentBase(doc, base)),
	}, nil
}

var whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}\x{FEFF}]+`)

// NormalizeText turns newlines into spaces and collapses every whitespace
// run into a single space. Leading and trailing space is kept.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return whitespaceRun.ReplaceAllString(s, " ")
}

// documentBase honors a <base href> element when present.
func documentBase(doc *goquery.Document, base *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return base
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	return base.ResolveReference(ref)
}

// extractLinks returns absolute http(s) links in document order, without
// fragments or duplicates.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	return links
}

// resolveURL resolves a relative URL against a base URL.
// Returns empty string if the href cannot be parsed, is not http(s), or is
// self-referential once the fragment is stripped.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	result := resolved.String()
	baseNoFragment := *base
	baseNoFragment.Fragment = ""
	baseNoFragment.RawFragment = ""
	if result == baseNoFragment.String() {
		return ""
	}
	return result
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

// HasSelector reports whether html contains an element matching selector.
func HasSelector(html, selector string) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, docchat.Errorf(docchat.EINVALID, "failed to parse HTML: %v", err)
	}
	return doc.Find(selector).Length() > 0, nil
}
