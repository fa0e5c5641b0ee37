// Package prometheus records pipeline metrics with Prometheus collectors.
package prometheus

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values.
const (
	statusOK    = "ok"
	statusError = "error"

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Metrics holds the collectors shared by the decorators in this package.
type Metrics struct {
	PagesFetched      *prometheus.CounterVec
	FetchDuration     *prometheus.HistogramVec
	Jobs              *prometheus.CounterVec
	ActiveJobs        prometheus.Gauge
	DocumentsIngested prometheus.Counter
	IngestFailures    prometheus.Counter
	Queries           *prometheus.CounterVec
	QueryDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docchat_pages_fetched_total",
				Help: "Total number of page fetches, labeled by site and status.",
			},
			[]string{"site", "status"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docchat_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by status.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		Jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docchat_jobs_total",
				Help: "Total number of crawl jobs, labeled by lifecycle event.",
			},
			[]string{"event"},
		),
		ActiveJobs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docchat_active_jobs",
				Help: "Number of crawl jobs currently being processed.",
			},
		),
		DocumentsIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docchat_documents_ingested_total",
				Help: "Total number of documents written to vector indexes.",
			},
		),
		IngestFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docchat_ingest_failures_total",
				Help: "Total number of failed ingestions.",
			},
		),
		Queries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docchat_queries_total",
				Help: "Total number of answered questions, labeled by mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docchat_query_duration_seconds",
				Help:    "Histogram of question answering latencies, labeled by mode.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"mode"},
		),
	}
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SanitizeSite reduces a URL to its lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusOK
}
