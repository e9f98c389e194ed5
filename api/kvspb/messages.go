package kvspb

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Op is the wire form of one write or unlink against a single key
// (mirrors kvstxn.Op). Dirent nil means unlink; otherwise it holds the
// treeobj.Encode of a val/valref/dirref/symlink record.
type Op struct {
	Key    string `json:"key"`
	Dirent []byte `json:"dirent,omitempty"`
	Append bool   `json:"append,omitempty"`
}

// CommitRequest submits ops as a single transaction against namespace.
type CommitRequest struct {
	Namespace string `json:"namespace"`
	Requestor string `json:"requestor"`
	Ops       []*Op  `json:"ops"`
	Sync      bool   `json:"sync,omitempty"`
	NoMerge   bool   `json:"no_merge,omitempty"`
}

// CommitResponse carries the namespace's new root after the commit.
type CommitResponse struct {
	Root string `json:"root"`
}

// FenceRequest submits ops as one caller's contribution to the named
// barrier Name; once Nprocs distinct submissions for Name have arrived,
// their ops are merged in submission order and committed together.
type FenceRequest struct {
	Namespace string `json:"namespace"`
	Requestor string `json:"requestor"`
	Name      string `json:"name"`
	Nprocs    int32  `json:"nprocs"`
	Ops       []*Op  `json:"ops"`
	Sync      bool   `json:"sync,omitempty"`
	NoMerge   bool   `json:"no_merge,omitempty"`
}

// FenceResponse reports whether this submission completed the barrier. If
// Ready is false, Root and Seq are the namespace's state at submission
// time, not the outcome of a commit.
type FenceResponse struct {
	Root  string `json:"root"`
	Seq   uint64 `json:"seq"`
	Ready bool   `json:"ready"`
}

// GetRootRequest asks for a namespace's current root and sequence number.
type GetRootRequest struct {
	Namespace string `json:"namespace"`
}

// GetRootResponse is the namespace's current root and sequence number.
type GetRootResponse struct {
	Root string `json:"root"`
	Seq  uint64 `json:"seq"`
}

// LookupRequest resolves key against a namespace's current root.
type LookupRequest struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// LookupAtRequest resolves key against a caller-supplied root (possibly
// one that is no longer the namespace's current root), for snapshot reads.
type LookupAtRequest struct {
	Namespace string `json:"namespace"`
	Root      string `json:"root"`
	Key       string `json:"key"`
}

// LookupResponse carries the treeobj.Encode of the resolved entry.
type LookupResponse struct {
	Treeobj []byte `json:"treeobj"`
}

// WatchRequest opens a server-streaming subscription to namespace's
// commit/checkpoint/leadership events. An empty Namespace receives events
// from every namespace.
type WatchRequest struct {
	Namespace string `json:"namespace,omitempty"`
}

// Event mirrors pkg/events.Event over the wire.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp *timestamppb.Timestamp `json:"timestamp,omitempty"`
	Message   string                 `json:"message"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
