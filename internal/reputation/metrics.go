package reputation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_reputation_lookups_total",
		Help: "Reputation lookups by indicator kind and outcome.",
	}, []string{"kind", "result"})

	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentinel_reputation_lookup_seconds",
		Help:    "Latency of reputation provider requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
