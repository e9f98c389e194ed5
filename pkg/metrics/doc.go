/*
Package metrics provides Prometheus metrics collection and exposition for
kvsd. Metrics are defined and registered at init; Collector periodically
samples gauge-shaped state (cache size, root sequence, Raft leadership)
while counters and histograms are updated inline at the call site that
produces the event they measure (see pkg/kvs/namespace.go's Commit).

# Metrics catalog

kvsd_commits_total{namespace,status}: Counter — commits by outcome
(ok/failed/error/rejected).

kvsd_commit_duration_seconds{namespace}: Histogram — time to drive a
commit (possibly a merged group) to completion.

kvsd_txn_merges_total{namespace}: Counter — adjacent txns folded by
TxnMgr.MergeReady.

kvsd_txn_merge_fallbacks_total{namespace}: Counter — merged txns that
failed and were split back into their originals.

kvsd_cache_entries{namespace}: Gauge — blobrefs tracked by a namespace's
cache.

kvsd_root_seq{namespace}: Gauge — current root sequence number.

kvsd_rootlog_is_leader: Gauge — 1 if this node is the rootlog Raft
leader, else 0.

kvsd_rootlog_applied_index: Gauge — last Raft log index applied to the
rootlog FSM. It is registered, but nothing in this repository sets it, so
it reads 0.

kvsd_content_store_total: Counter — blobs accepted by the content store.

kvsd_rpc_requests_total{method,status}: Counter — RPC requests.

kvsd_rpc_request_duration_seconds{method}: Histogram — RPC request
duration.

# Usage

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommitDuration, namespace)
	metrics.CommitsTotal.WithLabelValues(namespace, "ok").Inc()

	http.Handle("/metrics", metrics.Handler())

# Health

HealthChecker (health.go) tracks named components independently of the
Prometheus registry — RegisterComponent/UpdateComponent feed /health and
/ready, while rootlog, content_store, and rpc are the critical components
GetReadiness checks for.
*/
package metrics
