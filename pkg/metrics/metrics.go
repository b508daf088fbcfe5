// Package metrics exposes the Prometheus registry the depicts packages
// register into and the HTTP handler that serves it.
//
// Metrics are declared with promauto next to the code that records them
// (client, cache, ratelimit, traversal, enrich, search). This package only
// collects the catalogue and serves it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is where promauto registers every depicts metric.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Catalogue
//
// MediaWiki transport (pkg/client):
//   - mediawiki_requests_total{api, status}
//   - mediawiki_request_duration_seconds{api}
//   - mediawiki_errors_total{class}
//   - mediawiki_retries_total{error_class}
//   - mediawiki_retry_backoff_seconds{error_class}
//   - mediawiki_retry_exhausted_total{error_class}
//
// Response cache (pkg/cache):
//   - mediawiki_cache_hits_total{api}
//   - mediawiki_cache_misses_total{api}
//   - mediawiki_cache_bytes_total{direction}
//   - mediawiki_cache_errors_total{operation}
//
// Throttling (pkg/ratelimit):
//   - mediawiki_replication_lag_seconds
//   - mediawiki_throttle_waits_total
//   - mediawiki_throttle_blocks_total
//
// Core (pkg/traversal, pkg/enrich, pkg/search):
//   - depicts_traversal_total{depth1}
//   - depicts_traversal_degraded_total
//   - depicts_enrich_calls_total{call}
//   - depicts_enrich_degraded_total{stage}
//   - depicts_enrich_batch_size{call}
//   - depicts_search_requests_total{op, outcome}
//   - depicts_search_duration_seconds{op}
//
// Example queries:
//
//	# cache hit rate
//	sum(rate(mediawiki_cache_hits_total[5m])) /
//	(sum(rate(mediawiki_cache_hits_total[5m])) + sum(rate(mediawiki_cache_misses_total[5m])))
//
//	# share of search pages served partial
//	sum(rate(depicts_search_requests_total{op="search",outcome="partial"}[5m])) /
//	sum(rate(depicts_search_requests_total{op="search"}[5m]))
//
//	# p95 upstream latency
//	histogram_quantile(0.95, rate(mediawiki_request_duration_seconds_bucket[5m]))
