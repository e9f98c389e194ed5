package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Commit metrics
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsd_commits_total",
			Help: "Total number of commits by namespace and outcome",
		},
		[]string{"namespace", "status"},
	)

	CommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvsd_commit_duration_seconds",
			Help:    "Time taken to drive a commit (or merged commit) to completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace"},
	)

	MergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsd_txn_merges_total",
			Help: "Total number of adjacent txns folded into one by TxnMgr.MergeReady",
		},
		[]string{"namespace"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsd_txn_merge_fallbacks_total",
			Help: "Total number of merged txns that failed and were split back into originals",
		},
		[]string{"namespace"},
	)

	NoopStoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsd_txn_noop_stores_total",
			Help: "Total number of STORE operations that reused an existing cache entry instead of inserting a new one",
		},
		[]string{"namespace"},
	)

	// Cache metrics
	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kvsd_cache_entries",
			Help: "Number of blobrefs currently tracked by a namespace's cache",
		},
		[]string{"namespace"},
	)

	// Root metrics
	RootSeq = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kvsd_root_seq",
			Help: "Current root sequence number for a namespace",
		},
		[]string{"namespace"},
	)

	// Rootlog (Raft) metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kvsd_rootlog_is_leader",
			Help: "Whether this node is the rootlog Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kvsd_rootlog_applied_index",
			Help: "Last applied rootlog Raft log index",
		},
	)

	// Content store metrics
	ContentStoresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kvsd_content_store_total",
			Help: "Total number of blobs accepted by the content store",
		},
	)

	// RPC metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvsd_rpc_requests_total",
			Help: "Total number of RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvsd_rpc_request_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(CommitsTotal)
	prometheus.MustRegister(CommitDuration)
	prometheus.MustRegister(MergesTotal)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(NoopStoresTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(RootSeq)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(ContentStoresTotal)
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
