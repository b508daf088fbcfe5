package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts core operations by outcome.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depicts_search_requests_total",
			Help: "Total search, detail and suggest requests by operation and outcome",
		},
		[]string{"op", "outcome"}, // outcome: "ok", "partial", "invalid", "not_found", "error"
	)

	// Duration observes end-to-end latency of core operations.
	Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depicts_search_duration_seconds",
			Help:    "Duration of search, detail and suggest requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)
)
