package kvs

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/cache"
	"github.com/cuemby/kvsd/pkg/content"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/kvstxn"
	"github.com/cuemby/kvsd/pkg/metrics"
	"github.com/cuemby/kvsd/pkg/rootlog"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// maxConcurrentFlush bounds how many dirty cache entries a single commit
// flushes to the content store at once.
const maxConcurrentFlush = 8

// TouchHook is invoked with the set of keys a successful commit touched.
// *events.Broker.PublishCommit satisfies this; nil is a valid no-op hook.
type TouchHook func(namespace string, keys []string)

// FailHook is invoked with the error a commit (or fence) ultimately
// failed with, after any merge fallback has already been attempted.
// *events.Broker.PublishCommitFailed satisfies this.
type FailHook func(namespace string, err error)

// MergeHook is invoked with the number of adjacent txns MergeReady folded
// into one synthetic txn. *events.Broker.PublishTxnMerged satisfies this.
type MergeHook func(namespace string, merges int)

// FallbackHook is invoked with the component names of a merged txn that
// failed and was split back into its originals for individual retry.
// *events.Broker.PublishTxnFallback satisfies this.
type FallbackHook func(namespace string, names []string)

// CheckpointHook is invoked after a SYNC commit durably checkpoints a new
// root. *events.Broker.PublishCheckpointed satisfies this.
type CheckpointHook func(namespace, root string, seq uint64)

// Namespace drives commits against one kvstxn.TxnMgr.
type Namespace struct {
	Name      string
	Algo      string
	IsPrimary bool

	store   content.Store
	rootlog *rootlog.RootLog

	onTouch      TouchHook
	onFail       FailHook
	onMerge      MergeHook
	onFallback   FallbackHook
	onCheckpoint CheckpointHook

	mu     sync.Mutex
	cache  *cache.Cache
	mgr    *kvstxn.TxnMgr
	fences *kvstxn.FenceTable
	root   blobref.Blobref
	seq    uint64
}

// NewNamespace returns a namespace rooted at a fresh empty directory.
func NewNamespace(name, algo string, isPrimary bool, store content.Store, rl *rootlog.RootLog) (*Namespace, error) {
	c := cache.New()
	empty := treeobj.CreateDir()
	enc, err := treeobj.Encode(empty)
	if err != nil {
		return nil, err
	}
	ref, err := blobref.Hash(algo, enc)
	if err != nil {
		return nil, err
	}
	if _, err := c.InsertValid(ref, enc, false); err != nil {
		return nil, err
	}
	return &Namespace{
		Name:      name,
		Algo:      algo,
		IsPrimary: isPrimary,
		store:     store,
		rootlog:   rl,
		cache:     c,
		mgr:       kvstxn.NewTxnMgr(name),
		fences:    kvstxn.NewFenceTable(),
		root:      ref,
		seq:       0,
	}, nil
}

// SetTouchHook registers fn to be called with the touched-keys set of
// every successful commit.
func (n *Namespace) SetTouchHook(fn TouchHook) { n.onTouch = fn }

// SetFailHook registers fn to be called whenever a commit or fence
// ultimately fails.
func (n *Namespace) SetFailHook(fn FailHook) { n.onFail = fn }

// SetMergeHook registers fn to be called whenever MergeReady folds
// adjacent txns together.
func (n *Namespace) SetMergeHook(fn MergeHook) { n.onMerge = fn }

// SetFallbackHook registers fn to be called whenever a merged txn fails
// and is split back into its originals.
func (n *Namespace) SetFallbackHook(fn FallbackHook) { n.onFallback = fn }

// SetCheckpointHook registers fn to be called after a SYNC commit
// durably checkpoints a new root.
func (n *Namespace) SetCheckpointHook(fn CheckpointHook) { n.onCheckpoint = fn }

// GetRoot returns the namespace's current root and sequence number.
func (n *Namespace) GetRoot() (blobref.Blobref, uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.root, n.seq
}

// CacheLen returns the number of blobrefs currently tracked by the
// namespace's cache, for metrics collection.
func (n *Namespace) CacheLen() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cache.Len()
}

// Commit applies ops as a single transaction under requestor's name and
// returns the new root.
func (n *Namespace) Commit(ctx context.Context, requestor string, ops []kvstxn.Op, flags kvstxn.TxnFlag) (blobref.Blobref, error) {
	return n.commit(ctx, []string{requestor}, ops, flags)
}

// Fence submits ops as one caller's contribution to the named barrier
// name; once nprocs distinct submissions for name have arrived (across
// however many callers), their ops are merged in submission order and
// committed together (spec.md §6.2, SPEC_FULL.md §4.5). ready reports
// whether this call's submission completed the fence and produced a
// commit; while the fence is still waiting on more submissions it
// returns ready=false with the namespace's current root/seq as a hint.
// A name whose nprocs is 1 behaves exactly like Commit.
func (n *Namespace) Fence(ctx context.Context, requestor, name string, nprocs int, ops []kvstxn.Op, flags kvstxn.TxnFlag) (root blobref.Blobref, seq uint64, ready bool, err error) {
	n.mu.Lock()
	mergedOps, mergedFlags, names, ok := n.fences.Submit(name, nprocs, requestor, ops, flags)
	if !ok {
		root, seq = n.root, n.seq
		n.mu.Unlock()
		return root, seq, false, nil
	}
	n.mu.Unlock()

	root, err = n.commit(ctx, names, mergedOps, mergedFlags)
	if err != nil {
		return "", 0, false, err
	}
	_, seq = n.GetRoot()
	return root, seq, true, nil
}

// commit drives ops through one Txn (or merged group) to completion under
// the txn names given, handling the merge-fallback retry loop.
func (n *Namespace) commit(ctx context.Context, names []string, ops []kvstxn.Op, flags kvstxn.TxnFlag) (blobref.Blobref, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.CommitDuration, n.Name)

	txn := kvstxn.New(n.Name, n.Algo, ops, flags, n.IsPrimary, n.cache, names...)
	if err := n.mgr.Add(txn); err != nil {
		metrics.CommitsTotal.WithLabelValues(n.Name, "rejected").Inc()
		return "", err
	}
	if merges := n.mgr.MergeReady(); merges > 0 {
		metrics.MergesTotal.WithLabelValues(n.Name).Add(float64(merges))
		if n.onMerge != nil {
			n.onMerge(n.Name, merges)
		}
	}

	cur := n.mgr.Front()
	for {
		if err := n.driveOnce(ctx, cur); err != nil {
			metrics.CommitsTotal.WithLabelValues(n.Name, "error").Inc()
			if n.onFail != nil {
				n.onFail(n.Name, err)
			}
			return "", err
		}
		if cur.State() == kvstxn.StateFinished || cur.State() == kvstxn.StateError {
			break
		}
	}
	metrics.CacheEntries.WithLabelValues(n.Name).Set(float64(n.cache.Len()))
	metrics.NoopStoresTotal.WithLabelValues(n.Name).Add(float64(cur.NoopStores()))

	if cur.Err() != nil {
		err := cur.Err()
		_, wasMerged := kvstxn.Fallback(cur)
		if err := n.mgr.Remove(cur, true); err != nil {
			return "", err
		}
		if wasMerged {
			metrics.FallbacksTotal.WithLabelValues(n.Name).Inc()
			if n.onFallback != nil {
				n.onFallback(n.Name, cur.Names)
			}
		}
		metrics.CommitsTotal.WithLabelValues(n.Name, "failed").Inc()
		if n.onFail != nil {
			n.onFail(n.Name, err)
		}
		return "", err
	}

	n.root = cur.NewRoot()
	if flags&kvstxn.Sync != 0 {
		n.seq = cur.NewRootSeq()
	} else {
		n.seq++
	}
	metrics.RootSeq.WithLabelValues(n.Name).Set(float64(n.seq))
	if n.onTouch != nil {
		n.onTouch(n.Name, cur.TouchedKeys())
	}
	if flags&kvstxn.Sync != 0 && n.onCheckpoint != nil {
		n.onCheckpoint(n.Name, string(n.root), n.seq)
	}
	if err := n.mgr.Remove(cur, false); err != nil {
		return "", err
	}
	metrics.CommitsTotal.WithLabelValues(n.Name, "ok").Inc()
	return n.root, nil
}

// driveOnce advances txn by exactly one stall, resolving it against the
// namespace's store/rootlog.
func (n *Namespace) driveOnce(ctx context.Context, txn *kvstxn.Txn) error {
	root, seq := n.root, n.seq
	switch stall := txn.Process(root, seq); stall {
	case kvstxn.Finished:
		return nil

	case kvstxn.LoadMissingRefs:
		refs := txn.MissingRefs()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentFlush)
		for _, ref := range refs {
			ref := ref
			g.Go(func() error {
				b, err := n.store.Load(gctx, ref)
				if err != nil {
					return err
				}
				e := n.cache.LookupOrInsert(ref)
				return n.cache.SetRaw(e, b)
			})
		}
		return g.Wait()

	case kvstxn.DirtyCacheEntries:
		entries := txn.DirtyEntries()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentFlush)
		for _, e := range entries {
			e := e
			g.Go(func() error {
				if _, err := n.store.Store(gctx, e.Raw()); err != nil {
					return err
				}
				metrics.ContentStoresTotal.Inc()
				return n.cache.SetDirty(e, false)
			})
		}
		return g.Wait()

	case kvstxn.SyncContentFlush:
		err := n.store.Flush(ctx)
		txn.SetContentFlushResult(err)
		return nil

	case kvstxn.SyncCheckpoint:
		if n.rootlog == nil {
			err := kvserr.New(kvserr.NotSupported, "namespace has no rootlog configured for SYNC")
			txn.SetCheckpointResult(err)
			return nil
		}
		err := n.rootlog.SetRoot(n.Name, string(txn.NewRoot()), txn.NewRootSeq(), 0)
		txn.SetCheckpointResult(err)
		return nil
	}
	return nil
}
