package docchat

// Extraction holds the content pulled out of a rendered page.
type Extraction struct {
	// Title is the document title.
	Title string

	// Text is the normalized text content: newlines and whitespace runs
	// collapsed to single spaces.
	Text string

	// Links are the absolute http(s) links found on the page with
	// fragments removed, in document order and without duplicates.
	Links []string
}

// Extractor pulls title, text and links out of rendered HTML.
type Extractor interface {
	// Extract parses html located at pageURL. If selector is non-empty the
	// text comes from its first match, otherwise from the whole body.
	Extract(html, pageURL, selector string) (*Extraction, error)
}
