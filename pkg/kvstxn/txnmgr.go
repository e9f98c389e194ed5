package kvstxn

import (
	"github.com/cuemby/kvsd/pkg/cache"
	"github.com/cuemby/kvsd/pkg/kvserr"
)

// TxnMgr owns one namespace's FIFO of pending transactions (spec.md
// §4.4.1). It never processes a Txn itself — the driver pulls the front
// of the queue and calls Process on it — but it owns the merge policy and
// the invariant that txns complete in the order they were added.
type TxnMgr struct {
	namespace  string
	queue      []*Txn
	noopStores int
}

// NewTxnMgr returns an empty queue for namespace.
func NewTxnMgr(namespace string) *TxnMgr {
	return &TxnMgr{namespace: namespace}
}

// Add enqueues t. t must not have been processed yet.
func (m *TxnMgr) Add(t *Txn) error {
	if t.namespace != m.namespace {
		return kvserr.New(kvserr.InvalidArgument, "txn namespace does not match TxnMgr namespace")
	}
	if t.state != StateInit {
		return kvserr.New(kvserr.InvalidArgument, "cannot add an already-started txn")
	}
	m.queue = append(m.queue, t)
	return nil
}

// Len returns the number of txns currently queued.
func (m *TxnMgr) Len() int { return len(m.queue) }

// Front returns the first (oldest) txn in the queue, or nil if empty.
func (m *TxnMgr) Front() *Txn {
	if len(m.queue) == 0 {
		return nil
	}
	return m.queue[0]
}

// Remove dequeues t, which must be the front of the queue and have
// finished processing (spec.md's FIFO completion-order invariant). If t
// is a merged txn and fallback is true, its original components are
// re-surfaced at the head of the queue (spec.md §4.4.1: "the individual
// member txns remain in the queue with their merge markers cleared and
// each forced to NO_MERGE so they are retried individually").
func (m *TxnMgr) Remove(t *Txn, fallback bool) error {
	if len(m.queue) == 0 || m.queue[0] != t {
		return kvserr.New(kvserr.InvalidArgument, "txn is not the front of the queue")
	}
	if t.state != StateFinished && t.state != StateError {
		return kvserr.New(kvserr.InvalidArgument, "cannot remove a txn that has not finished")
	}
	m.noopStores += t.noopStores
	m.queue = m.queue[1:]

	if fallback {
		if originals, ok := Fallback(t); ok {
			for _, o := range originals {
				o.mergedFrom = nil
				o.flags |= NoMerge
			}
			m.queue = append(append([]*Txn(nil), originals...), m.queue...)
		}
	}
	return nil
}

// mergeable reports whether a and b may be combined into a single synthetic
// txn (spec.md §4.4.4): neither has started processing, neither carries
// NO_MERGE or SYNC, and their flag sets are identical.
func mergeable(a, b *Txn) bool {
	if a.state != StateInit || b.state != StateInit {
		return false
	}
	if a.flags&(NoMerge|Sync) != 0 || b.flags&(NoMerge|Sync) != 0 {
		return false
	}
	return a.flags == b.flags
}

// MergeReady scans the front of the queue and collapses any run of
// mergeable txns into one synthetic Txn, replacing them in place. It
// returns the number of merges performed (0 if nothing changed).
func (m *TxnMgr) MergeReady() int {
	merges := 0
	for i := 0; i+1 < len(m.queue); {
		a, b := m.queue[i], m.queue[i+1]
		if !mergeable(a, b) {
			i++
			continue
		}
		merged := m.merge(a, b)
		m.queue[i] = merged
		m.queue = append(m.queue[:i+1], m.queue[i+2:]...)
		merges++
	}
	return merges
}

func (m *TxnMgr) merge(a, b *Txn) *Txn {
	names := append(append([]string(nil), a.Names...), b.Names...)
	ops := append(append([]Op(nil), a.ops...), b.ops...)
	merged := New(m.namespace, b.algo, ops, a.flags|b.flags, b.isPrimary, b.cache, names...)
	for _, x := range []*Txn{a, b} {
		if x.mergedFrom != nil {
			merged.mergedFrom = append(merged.mergedFrom, x.mergedFrom...)
		} else {
			merged.mergedFrom = append(merged.mergedFrom, x)
		}
	}
	return merged
}

// Fallback reports whether merged is a synthetic txn produced by
// MergeReady, returning its original, unprocessed components in order.
// The driver calls this after a merged txn fails, splicing the originals
// back into the queue in merged's place and retrying them individually —
// spec.md's required fallback when a merge turns out not to be safe.
func Fallback(merged *Txn) ([]*Txn, bool) {
	if merged.mergedFrom == nil {
		return nil, false
	}
	return merged.mergedFrom, true
}

// Entries aggregates DirtyEntries across every txn currently in the
// queue that has produced some, useful for a driver that wants to flush
// once per reactor tick rather than per txn.
func (m *TxnMgr) Entries() []*cache.Entry {
	var out []*cache.Entry
	for _, t := range m.queue {
		out = append(out, t.DirtyEntries()...)
	}
	return out
}

// NoopStores returns the running count of STORE operations, across every
// txn this TxnMgr has ever removed, that reused an existing cache entry
// instead of inserting a new one (spec.md §4.4.1's diagnostic counter for
// cache-hit stores).
func (m *TxnMgr) NoopStores() int { return m.noopStores }

// ClearNoopStores resets the noop-store counter to zero.
func (m *TxnMgr) ClearNoopStores() { m.noopStores = 0 }
