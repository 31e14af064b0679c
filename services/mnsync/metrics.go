package mnsync

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusSyncDiffsApplied prometheus.Counter
	prometheusSyncDiffsSkipped prometheus.Counter
	prometheusSyncRPCLookups   *prometheus.CounterVec
	prometheusSyncCacheHits    *prometheus.CounterVec
	prometheusSyncCacheMisses  *prometheus.CounterVec
	prometheusSyncDuration     prometheus.Histogram
	prometheusSyncProofPoints  prometheus.Counter
	prometheusMetricsInitOnce  sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusSyncDiffsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "diffs_applied",
			Help:      "Number of masternode list diffs fetched and applied",
		},
	)
	prometheusSyncDiffsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "diffs_skipped",
			Help:      "Number of diff ranges skipped because they were already recorded",
		},
	)
	prometheusSyncRPCLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "rpc_lookups",
			Help:      "Number of Core RPC lookups, by call",
		},
		[]string{"call"},
	)
	prometheusSyncCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "cache_hits",
			Help:      "Number of lookup cache hits, by cache",
		},
		[]string{"cache"},
	)
	prometheusSyncCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "cache_misses",
			Help:      "Number of lookup cache misses, by cache",
		},
		[]string{"cache"},
	)
	prometheusSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of SyncTo calls",
			Buckets:   prometheus.DefBuckets,
		},
	)
	prometheusSyncProofPoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "sync",
			Name:      "proof_points",
			Help:      "Number of chain-lock proof points resolved during validation",
		},
	)
}
