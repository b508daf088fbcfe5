package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchCalls counts batched external calls by kind.
	BatchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depicts_enrich_calls_total",
			Help: "Total batched enrichment calls by kind",
		},
		[]string{"call"}, // "claims", "labels"
	)

	// Degraded counts enrichments that lost data, by failing stage.
	Degraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depicts_enrich_degraded_total",
			Help: "Total enrichments returned with degraded depicts data",
		},
		[]string{"stage"}, // "claims", "labels"
	)

	// BatchSize observes the number of ids per batched call.
	BatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "depicts_enrich_batch_size",
			Help:    "Number of ids per batched enrichment call",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"call"},
	)
)
