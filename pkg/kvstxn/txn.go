package kvstxn

import (
	"fmt"

	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/cache"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// Txn is one transaction's instance of the commit state machine
// (spec.md §4.4.2). It is driven entirely through Process; nothing in
// this package ever blocks or spawns a goroutine.
type Txn struct {
	Names     []string
	namespace string
	algo      string
	ops       []Op
	flags     TxnFlag
	isPrimary bool

	cache *cache.Cache

	state State
	err   error

	rootPristine *treeobj.Treeobj // deep copy of the root as loaded, for append rewind
	rootcpy      *treeobj.Treeobj // working copy, mutated through APPLY_OPS
	rootEntry    *cache.Entry     // pinned while loaded

	applyAttempts int

	missing *refSet

	dirty         []*cache.Entry // drained by DirtyEntries(); refilled by STORE
	producedDirty []*cache.Entry // append-only, for rollback

	newrootRef   blobref.Blobref
	newrootEntry *cache.Entry

	keys map[string]struct{}

	contentFlushRequested bool
	contentFlushDone      bool
	contentFlushErr       error

	checkpointRequested bool
	checkpointDone      bool
	checkpointErr       error

	rootSeq    uint64
	newRootSeq uint64

	mergedFrom []*Txn

	noopStores int
}

// New returns a Txn ready to Process. names identifies the requestors that
// contributed ops to this txn (a merged txn has more than one); algo is
// the hash algorithm new blobs are stored under.
func New(namespace, algo string, ops []Op, flags TxnFlag, isPrimary bool, c *cache.Cache, names ...string) *Txn {
	return &Txn{
		Names:     names,
		namespace: namespace,
		algo:      algo,
		ops:       append([]Op(nil), ops...),
		flags:     flags,
		isPrimary: isPrimary,
		cache:     c,
		state:     StateInit,
		missing:   newRefSet(),
		keys:      make(map[string]struct{}),
	}
}

// State returns the txn's current state.
func (t *Txn) State() State { return t.state }

// Err returns the terminal error, if the txn reached StateError.
func (t *Txn) Err() error { return t.err }

// NewRoot returns the txn's new root blobref. Only meaningful once
// Process has returned Finished with Err() == nil.
func (t *Txn) NewRoot() blobref.Blobref { return t.newrootRef }

// TouchedKeys returns the set of normalized keys this txn's ops named.
func (t *Txn) TouchedKeys() []string {
	out := make([]string, 0, len(t.keys))
	for k := range t.keys {
		out = append(out, k)
	}
	return out
}

// MissingRefs drains and returns the blobrefs this txn needs loaded into
// the cache before Process can make further progress.
func (t *Txn) MissingRefs() []blobref.Blobref {
	return t.missing.drain()
}

// DirtyEntries drains and returns the cache entries this txn has produced
// since the last call, for the caller to flush to the content store.
func (t *Txn) DirtyEntries() []*cache.Entry {
	out := t.dirty
	t.dirty = nil
	return out
}

// SetContentFlushResult reports the outcome of the content-store flush the
// caller performed in response to a SyncContentFlush stall.
func (t *Txn) SetContentFlushResult(err error) {
	t.contentFlushDone = true
	t.contentFlushErr = err
}

// SetCheckpointResult reports the outcome of the durable checkpoint the
// caller performed in response to a SyncCheckpoint stall.
func (t *Txn) SetCheckpointResult(err error) {
	t.checkpointDone = true
	t.checkpointErr = err
}

// NewRootSeq returns the sequence number this txn checkpointed (or would
// checkpoint, for a SYNC txn). Valid once SYNC_CHECKPOINT has been entered.
func (t *Txn) NewRootSeq() uint64 { return t.newRootSeq }

// NoopStores returns the number of STORE operations this txn performed
// that reused an already-dirty cache entry instead of inserting a new one
// (spec.md §5's "Shared resources" note on store_cache returning a noop
// indication).
func (t *Txn) NoopStores() int { return t.noopStores }

func (t *Txn) fail(err error) {
	t.err = err
	t.state = StateError
	t.rollbackDirty()
}

// rollbackDirty removes every cache entry this txn produced. Called only
// on a hard failure; per spec.md §7 this is the single most error-prone
// invariant in the engine, so it lives in one place.
func (t *Txn) rollbackDirty() {
	for _, e := range t.producedDirty {
		t.cache.Remove(e.Ref, true)
	}
	t.producedDirty = nil
	t.dirty = nil
}

// Process drives the state machine forward as far as it can go given
// root/rootSeq (the namespace's current root and sequence number), and
// reports what it is now waiting on.
func (t *Txn) Process(root blobref.Blobref, rootSeq uint64) Stall {
	if !t.missing.empty() {
		return LoadMissingRefs
	}
	if len(t.dirty) > 0 {
		return DirtyCacheEntries
	}

	for {
		switch t.state {
		case StateInit:
			if t.flags&Sync != 0 && !t.isPrimary {
				t.fail(kvserr.New(kvserr.InvalidArgument, "SYNC is only legal in the primary namespace instance"))
				return Finished
			}
			t.rootSeq = rootSeq
			t.state = StateLoadRoot

		case StateLoadRoot:
			entry := t.cache.Lookup(root)
			if entry == nil || !entry.Valid() {
				t.missing.add(root)
				return LoadMissingRefs
			}
			if len(t.ops) == 0 {
				t.newrootRef = root
				t.newrootEntry = entry
				entry.Take()
				t.state = StateGenerateKeys
				continue
			}
			obj, err := entry.Treeobj()
			if err != nil {
				t.fail(kvserr.Wrap(kvserr.Unrecoverable, "decode root", err))
				return Finished
			}
			entry.Take()
			t.rootEntry = entry
			t.rootPristine = obj.DeepCopy()
			t.rootcpy = obj.DeepCopy()
			t.state = StateApplyOps

		case StateApplyOps:
			if t.applyAttempts > 0 && t.hasAppendOp() {
				t.rootcpy = t.rootPristine.DeepCopy()
			}
			t.applyAttempts++

			for _, op := range t.ops {
				key, err := treeobj.NormalizeKey(op.Key)
				if err == nil {
					t.keys[key] = struct{}{}
				}
				newRoot, _, err := t.linkDirent(t.rootcpy, op.Key, op.Dirent, op.Flags)
				if err != nil {
					t.fail(err)
					return Finished
				}
				t.rootcpy = newRoot
			}
			if !t.missing.empty() {
				return LoadMissingRefs
			}
			t.state = StateStore

		case StateStore:
			rewritten, err := t.storeWalk(t.rootcpy)
			if err != nil {
				t.fail(err)
				return Finished
			}
			enc, err := treeobj.Encode(rewritten)
			if err != nil {
				t.fail(kvserr.Wrap(kvserr.Unrecoverable, "encode root", err))
				return Finished
			}
			ref, err := t.storeBlob(enc)
			if err != nil {
				t.fail(err)
				return Finished
			}
			entry := t.cache.Lookup(ref)
			entry.Take()
			t.newrootRef = ref
			t.newrootEntry = entry
			t.state = StateGenerateKeys

		case StateGenerateKeys:
			if len(t.dirty) > 0 {
				return DirtyCacheEntries
			}
			if t.flags&Sync == 0 {
				t.state = StateFinished
				continue
			}
			t.state = StateSyncContentFlush

		case StateSyncContentFlush:
			if !t.contentFlushRequested {
				t.contentFlushRequested = true
				return SyncContentFlush
			}
			if !t.contentFlushDone {
				return SyncContentFlush
			}
			if t.contentFlushErr != nil {
				t.fail(kvserr.Wrap(kvserr.Unrecoverable, "content flush", t.contentFlushErr))
				return Finished
			}
			t.newRootSeq = t.rootSeq + 1
			t.state = StateSyncCheckpoint

		case StateSyncCheckpoint:
			if !t.checkpointRequested {
				t.checkpointRequested = true
				return SyncCheckpoint
			}
			if !t.checkpointDone {
				return SyncCheckpoint
			}
			if t.checkpointErr != nil {
				t.fail(kvserr.Wrap(kvserr.Unrecoverable, "checkpoint", t.checkpointErr))
				return Finished
			}
			t.state = StateFinished

		case StateFinished, StateError:
			return Finished

		default:
			panic(fmt.Sprintf("kvstxn: unknown state %v", t.state))
		}
	}
}

func (t *Txn) hasAppendOp() bool {
	for _, op := range t.ops {
		if op.Flags&OpAppend != 0 {
			return true
		}
	}
	return false
}

// storeBlob content-addresses b, inserts it into the cache as a dirty
// entry (reusing any existing entry for the same bytes), and tracks it
// for both DirtyEntries() draining and rollback.
func (t *Txn) storeBlob(b []byte) (blobref.Blobref, error) {
	ref, err := blobref.Hash(t.algo, b)
	if err != nil {
		return "", kvserr.Wrap(kvserr.Unrecoverable, "hash blob", err)
	}
	entry := t.cache.Lookup(ref)
	if entry == nil {
		entry, err = t.cache.InsertValid(ref, b, true)
		if err != nil {
			return "", kvserr.Wrap(kvserr.Unrecoverable, "insert blob", err)
		}
		t.trackDirty(entry)
		return ref, nil
	}
	// Another op (in this txn or an earlier one sharing the cache)
	// already produced this exact blob — store_cache returns a noop
	// indication and we reuse the existing entry.
	t.noopStores++
	if !entry.Valid() {
		if err := t.cache.SetRaw(entry, b); err != nil {
			return "", kvserr.Wrap(kvserr.Unrecoverable, "set raw", err)
		}
	}
	if !entry.Dirty() {
		if err := t.cache.SetDirty(entry, true); err != nil {
			return "", kvserr.Wrap(kvserr.Unrecoverable, "mark dirty", err)
		}
		t.trackDirty(entry)
	}
	return ref, nil
}

func (t *Txn) trackDirty(e *cache.Entry) {
	t.dirty = append(t.dirty, e)
	t.producedDirty = append(t.producedDirty, e)
}
