// Package metrics exposes the crawler's Prometheus metrics.
// All metrics are defined in their respective packages (crawler, client,
// cache, ratelimit, review, storage, pipeline) via promauto and registered
// on the default registry.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the crawler.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns a server exposing /metrics and /health on addr.
// The caller starts and shuts it down.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// Metrics Documentation
//
// Crawl Metrics (pkg/crawler):
//   - review_crawler_pages_fetched_total{platform, source} (Counter): Pages by source (network, cache)
//   - review_crawler_crawl_duration_seconds{platform} (Histogram): One application's pagination run
//   - review_crawler_crawl_failures_total{platform} (Counter): Runs aborted by a request failure
//
// Pipeline Metrics (pkg/pipeline):
//   - review_crawler_apps_total{platform, result} (Counter): Applications by result (success, failure)
//   - review_crawler_unit_duration_seconds{platform} (Histogram): Duration of one platform unit
//
// Extraction Metrics (pkg/review):
//   - review_records_extracted_total{platform} (Counter): Complete records extracted
//   - review_records_dropped_total{platform} (Counter): Entries dropped for missing title or review
//
// Storage Metrics (pkg/storage):
//   - review_storage_rows_written_total{platform} (Counter): CSV rows written
//   - review_storage_failures_total{platform} (Counter): Failed persist calls
//
// Request Metrics (pkg/client):
//   - review_requests_total{host, status} (Counter): Requests by host and HTTP status
//   - review_request_duration_seconds{host} (Histogram): Request duration by host
//   - review_request_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Throttle Metrics (pkg/ratelimit):
//   - review_throttle_wait_seconds (Histogram): Time spent in the inter-request delay
//
// Cache Metrics (pkg/cache):
//   - review_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - review_cache_misses_total (Counter): Page cache misses
//   - review_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - review_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Application failure ratio
//   sum(review_crawler_apps_total{result="failure"}) / sum(review_crawler_apps_total)
//
//   # Cache share of fetched pages
//   sum(rate(review_crawler_pages_fetched_total{source="cache"}[5m])) /
//   sum(rate(review_crawler_pages_fetched_total[5m]))
//
//   # Drop rate by platform
//   rate(review_records_dropped_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(review_request_duration_seconds_bucket[5m]))
