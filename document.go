package docchat

// CrawledDocument is the text extracted from one page during a crawl run.
// URL is the natural key: a run yields at most one document per URL.
type CrawledDocument struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}
