// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DisposalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fishfarm_disposals_created_total",
		Help: "Disposal records created, by disposal method.",
	}, []string{"method"})

	DisposedWeightKg = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishfarm_disposed_weight_kg_total",
		Help: "Stock weight moved to disposed, in kilograms.",
	})

	EligibleCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fishfarm_disposal_candidates",
		Help:    "Number of candidates returned per eligibility evaluation.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	TransferDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fishfarm_transfer_decisions_total",
		Help: "Transfer records approved, declined or completed.",
	}, []string{"decision"})

	DispatchedPieces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishfarm_dispatched_pieces_total",
		Help: "Pieces picked into committed dispatches.",
	})

	StoreRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fishfarm_store_retries_total",
		Help: "Transactions re-run after a transient store failure.",
	})

	Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fishfarm_conflicts_total",
		Help: "Operations rejected because stock changed concurrently.",
	}, []string{"operation"})
)
