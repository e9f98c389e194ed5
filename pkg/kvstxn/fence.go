package kvstxn

import (
	"github.com/google/uuid"
)

// fenceSubmission is one caller's ops/flags contribution to a named fence.
type fenceSubmission struct {
	requestor string
	ops       []Op
	flags     TxnFlag
}

// fenceEntry accumulates submissions under one fence name until nprocs
// distinct submissions have arrived.
type fenceEntry struct {
	instanceID  string
	nprocs      int
	submissions []fenceSubmission
}

// FenceTable implements the fence barrier described in spec.md §6.2:
// nprocs separate callers each submit ops under the same fence name, and
// once nprocs distinct submissions for that name have arrived their ops
// are merged, in submission order, into a single transaction. Membership
// does not survive a process restart — it is purely in-memory, matching
// the original's in-memory struct kvs_fence lifetime.
type FenceTable struct {
	entries map[string]*fenceEntry
}

// NewFenceTable returns an empty fence table.
func NewFenceTable() *FenceTable {
	return &FenceTable{entries: make(map[string]*fenceEntry)}
}

// Submit records one submission under name from requestor. nprocs must be
// the same value every caller submitting under name uses; a value <= 1
// behaves exactly like commit (ok is always true, with no accumulation).
// Once nprocs submissions for name have arrived, Submit returns the
// concatenated ops, the union of flags, the ordered requestor names, and
// ok=true, clearing the entry. While still waiting for more submissions it
// returns ok=false.
func (f *FenceTable) Submit(name string, nprocs int, requestor string, ops []Op, flags TxnFlag) (mergedOps []Op, mergedFlags TxnFlag, names []string, ok bool) {
	if nprocs <= 1 {
		return append([]Op(nil), ops...), flags, []string{requestor}, true
	}

	e, exists := f.entries[name]
	if !exists {
		e = &fenceEntry{instanceID: uuid.NewString(), nprocs: nprocs}
		f.entries[name] = e
	}
	e.submissions = append(e.submissions, fenceSubmission{requestor: requestor, ops: ops, flags: flags})
	if len(e.submissions) < e.nprocs {
		return nil, 0, nil, false
	}

	delete(f.entries, name)
	for _, s := range e.submissions {
		mergedOps = append(mergedOps, s.ops...)
		mergedFlags |= s.flags
		names = append(names, s.requestor)
	}
	return mergedOps, mergedFlags, names, true
}

// Pending reports how many fence names currently have an incomplete set
// of submissions outstanding, for diagnostics.
func (f *FenceTable) Pending() int { return len(f.entries) }

// Abandon drops an incomplete fence's accumulated submissions. Fences
// never survive a process restart, so this is only useful for an
// explicit cancel; nothing calls it today.
func (f *FenceTable) Abandon(name string) {
	delete(f.entries, name)
}
