package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesPriced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_quotes_priced_total",
		Help: "Quotes priced, labeled by outcome",
	}, []string{"outcome"})

	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_total",
		Help: "Settlement attempts by terminal status",
	}, []string{"status"})

	SettlementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Latency of the full admission-and-commit path",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})
)
