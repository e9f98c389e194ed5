package kvstxn

import (
	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// OpFlag modifies how a single Op is applied.
type OpFlag uint32

const (
	// OpAppend requests the append rule (spec.md §4.4.6) instead of plain
	// insert-or-overwrite.
	OpAppend OpFlag = 1 << iota
)

// TxnFlag modifies how a whole Txn is processed.
type TxnFlag uint32

const (
	// NoMerge excludes a txn from the TxnMgr merge pass.
	NoMerge TxnFlag = 1 << iota
	// Sync requests a durable checkpoint (SYNC_CONTENT_FLUSH/SYNC_CHECKPOINT)
	// before the txn is reported finished. Only legal in the namespace's
	// primary instance.
	Sync
)

// Op is one write or unlink against a single key. Dirent nil means unlink;
// a non-nil Dirent must be a val, valref, dirref, or symlink treeobj (never
// a dir — spec.md §4.1 dir entries are only ever produced internally).
type Op struct {
	Key    string
	Dirent *treeobj.Treeobj
	Flags  OpFlag
}

// State names one step of the Txn state machine (spec.md §4.4.2).
type State int

const (
	StateInit State = iota
	StateLoadRoot
	StateApplyOps
	StateStore
	StateGenerateKeys
	StateSyncContentFlush
	StateSyncCheckpoint
	StateFinished
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoadRoot:
		return "LOAD_ROOT"
	case StateApplyOps:
		return "APPLY_OPS"
	case StateStore:
		return "STORE"
	case StateGenerateKeys:
		return "GENERATE_KEYS"
	case StateSyncContentFlush:
		return "SYNC_CONTENT_FLUSH"
	case StateSyncCheckpoint:
		return "SYNC_CHECKPOINT"
	case StateFinished:
		return "FINISHED"
	case StateError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Stall is returned by Process to say what it is waiting on.
type Stall int

const (
	// Finished means the txn completed (successfully or not — check Err()).
	Finished Stall = iota
	// LoadMissingRefs means MissingRefs() has new blobrefs the caller must
	// resolve (load into the cache) before calling Process again.
	LoadMissingRefs
	// DirtyCacheEntries means DirtyEntries() has new entries the caller
	// must flush to the content store before calling Process again.
	DirtyCacheEntries
	// SyncContentFlush means the caller must flush the content store and
	// report the result via SetContentFlushResult, then call Process again.
	SyncContentFlush
	// SyncCheckpoint means the caller must durably record the new root and
	// report the result via SetCheckpointResult, then call Process again.
	SyncCheckpoint
)

func (s Stall) String() string {
	switch s {
	case Finished:
		return "FINISHED"
	case LoadMissingRefs:
		return "LOAD_MISSING_REFS"
	case DirtyCacheEntries:
		return "DIRTY_CACHE_ENTRIES"
	case SyncContentFlush:
		return "SYNC_CONTENT_FLUSH"
	case SyncCheckpoint:
		return "SYNC_CHECKPOINT"
	}
	return "UNKNOWN"
}

// refSet is a small ordered set of blobrefs, used to dedupe missing-ref
// records collected across a single APPLY_OPS pass.
type refSet struct {
	order []blobref.Blobref
	seen  map[blobref.Blobref]bool
}

func newRefSet() *refSet {
	return &refSet{seen: make(map[blobref.Blobref]bool)}
}

func (s *refSet) add(ref blobref.Blobref) {
	if s.seen[ref] {
		return
	}
	s.seen[ref] = true
	s.order = append(s.order, ref)
}

func (s *refSet) drain() []blobref.Blobref {
	out := s.order
	s.order = nil
	s.seen = make(map[blobref.Blobref]bool)
	return out
}

func (s *refSet) empty() bool { return len(s.order) == 0 }
