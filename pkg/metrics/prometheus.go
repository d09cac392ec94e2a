package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GridGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitegrid_grid_generations_total",
			Help: "Total number of grid generation runs by mode and result",
		},
		[]string{"mode", "result"},
	)

	GridCellsGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitegrid_grid_cells_generated",
			Help:    "Number of cells produced per grid generation run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	CapacityDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitegrid_capacity_decisions_total",
			Help: "Capacity evaluations by outcome and violated rule",
		},
		[]string{"outcome", "violation"},
	)

	AllocationEvalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitegrid_allocation_eval_seconds",
			Help:    "Time spent checking and inserting an allocation, lock wait included",
			Buckets: prometheus.DefBuckets,
		},
	)
)
