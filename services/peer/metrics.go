package peer

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusPeerFramesRead      prometheus.Counter
	prometheusPeerFramesDiscarded prometheus.Counter
	prometheusPeerResyncBytes     prometheus.Counter
	prometheusPeerChecksumErrors  prometheus.Counter
	prometheusPeerRequests        *prometheus.CounterVec
	prometheusPeerRequestDuration prometheus.Histogram

	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusPeerFramesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "frames_read",
			Help:      "Number of frames read from the peer",
		},
	)
	prometheusPeerFramesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "frames_discarded",
			Help:      "Number of inbound frames discarded while waiting for a response",
		},
	)
	prometheusPeerResyncBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "resync_bytes",
			Help:      "Number of bytes discarded while scanning for the network magic",
		},
	)
	prometheusPeerChecksumErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "checksum_errors",
			Help:      "Number of frames dropped due to a checksum mismatch",
		},
	)
	prometheusPeerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "requests",
			Help:      "Number of P2P requests sent, by command",
		},
		[]string{"command"},
	)
	prometheusPeerRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mnsync",
			Subsystem: "peer",
			Name:      "request_duration_seconds",
			Help:      "Time between sending a request and receiving the matching response",
			Buckets:   prometheus.DefBuckets,
		},
	)
}
