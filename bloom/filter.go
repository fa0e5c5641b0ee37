// Package bloom provides probabilistic URL deduplication for crawl frontiers.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter remembers URLs in a fixed amount of memory. A false positive makes
// the crawler skip a URL it never visited; false negatives never happen.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a filter sized for n expected URLs at the given false
// positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Add records a URL.
func (f *Filter) Add(url string) {
	f.f.AddString(url)
}

// Test returns true if the URL might have been recorded.
func (f *Filter) Test(url string) bool {
	return f.f.TestString(url)
}

// TestAndAdd records a URL and reports whether it might have been recorded
// before.
func (f *Filter) TestAndAdd(url string) bool {
	return f.f.TestAndAddString(url)
}

// Reset forgets every recorded URL.
func (f *Filter) Reset() {
	f.f.ClearAll()
}

// EstimatedCount returns the approximate number of recorded URLs.
func (f *Filter) EstimatedCount() uint {
	return uint(f.f.ApproximatedSize())
}
