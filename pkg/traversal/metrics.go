package traversal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TraversalsTotal counts traversals by whether depth 1 was visited.
	TraversalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "depicts_traversal_total",
			Help: "Total category traversals by whether subcategories were visited",
		},
		[]string{"depth1"}, // "true", "false"
	)

	// TraversalsDegraded counts traversals that dropped depth-1 results after a failure.
	TraversalsDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "depicts_traversal_degraded_total",
			Help: "Total traversals that fell back to depth-0 items after a subcategory failure",
		},
	)
)
