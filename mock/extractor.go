package mock

import "github.com/fwojciec/docchat"

var _ docchat.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of docchat.Extractor.
type Extractor struct {
	ExtractFn func(html, pageURL, selector string) (*docchat.Extraction, error)
}

func (e *Extractor) Extract(html, pageURL, selector string) (*docchat.Extraction, error) {
	return e.ExtractFn(html, pageURL, selector)
}
