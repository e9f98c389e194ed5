package metrics

import (
	"time"
)

// NamespaceStats adapts one kvs.Namespace's read-only accessors for the
// collector, without pkg/metrics importing pkg/kvs (the service layer it
// instruments). Callers (cmd/kvsd) build one of these per namespace.
type NamespaceStats struct {
	Name     string
	GetRoot  func() (string, uint64)
	CacheLen func() int
}

// leaderSource reports rootlog Raft leadership for the collector's
// periodic gauge refresh.
type leaderSource interface {
	IsLeader() bool
}

// Collector periodically samples namespace and rootlog state into
// gauges; commit/merge/fallback counters are incremented inline by
// pkg/kvs at the moment they happen instead (see pkg/kvs/namespace.go).
type Collector struct {
	namespaces []NamespaceStats
	rootlog    leaderSource
	stopCh     chan struct{}
}

// NewCollector creates a collector over the given namespaces. rootlog may
// be nil for a non-primary instance.
func NewCollector(namespaces []NamespaceStats, rl leaderSource) *Collector {
	return &Collector{
		namespaces: namespaces,
		rootlog:    rl,
		stopCh:     make(chan struct{}),
	}
}

// Start begins collecting metrics on a 15s tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	for _, ns := range c.namespaces {
		_, seq := ns.GetRoot()
		RootSeq.WithLabelValues(ns.Name).Set(float64(seq))
		CacheEntries.WithLabelValues(ns.Name).Set(float64(ns.CacheLen()))
	}

	if c.rootlog != nil {
		if c.rootlog.IsLeader() {
			RaftLeader.Set(1)
		} else {
			RaftLeader.Set(0)
		}
	}
}
