package convert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	zonesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csgnorm_zones_in_total",
		Help: "Zones read from input regions",
	})

	zonesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csgnorm_zones_out_total",
		Help: "Zones written to output regions",
	})

	termsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csgnorm_terms_pruned_total",
		Help: "Zone operands removed by the prune pass",
	})

	bodiesSquashed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csgnorm_bodies_squashed_total",
		Help: "Body operands replaced by an identical earlier body in the squash pass",
	})

	regionsEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csgnorm_regions_empty_total",
		Help: "Regions left with no zones after conversion",
	})

	regionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csgnorm_region_duration_seconds",
		Help:    "Time to run every pass over one region",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
	})
)
