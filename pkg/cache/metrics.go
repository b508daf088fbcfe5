package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediawiki_cache_hits_total",
			Help: "API responses served from Redis, by API host",
		},
		[]string{"api"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediawiki_cache_misses_total",
			Help: "API response lookups not found in Redis, by API host",
		},
		[]string{"api"},
	)

	// CacheBytes counts encoded entry bytes moved in and out of Redis.
	CacheBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediawiki_cache_bytes_total",
			Help: "Encoded cache entry bytes read from or written to Redis",
		},
		[]string{"direction"}, // read, write
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediawiki_cache_errors_total",
			Help: "Failed cache operations",
		},
		[]string{"operation"}, // get, set, delete, encode, decode
	)
)
