package kvstxn

import (
	"errors"
	"testing"

	"github.com/cuemby/kvsd/pkg/cache"
)

func TestMergeableRejectsDifferingFlagSets(t *testing.T) {
	c := cache.New()
	plain := New("primary", testAlgo, []Op{{Key: "a", Dirent: nil}}, 0, true, c, "req1")
	sync := New("primary", testAlgo, []Op{{Key: "b", Dirent: nil}}, Sync, true, c, "req2")
	if mergeable(plain, sync) {
		t.Errorf("mergeable() = true for a plain txn and a Sync txn, want false")
	}
	if mergeable(sync, plain) {
		t.Errorf("mergeable() = true regardless of argument order, want false both ways")
	}

	noMerge := New("primary", testAlgo, []Op{{Key: "c", Dirent: nil}}, NoMerge, true, c, "req3")
	if mergeable(plain, noMerge) {
		t.Errorf("mergeable() = true for a plain txn and a NoMerge txn, want false")
	}
}

func TestMergeableAcceptsIdenticalPlainFlags(t *testing.T) {
	c := cache.New()
	a := New("primary", testAlgo, []Op{{Key: "a", Dirent: nil}}, 0, true, c, "req1")
	b := New("primary", testAlgo, []Op{{Key: "b", Dirent: nil}}, 0, true, c, "req2")
	if !mergeable(a, b) {
		t.Errorf("mergeable() = false for two plain txns, want true")
	}
}

func TestRemoveFallbackForcesNoMergeAndRequeuesAtHead(t *testing.T) {
	c := cache.New()
	mgr := NewTxnMgr("primary")

	txn1 := New("primary", testAlgo, []Op{{Key: "a", Dirent: nil}}, 0, true, c, "req1")
	txn2 := New("primary", testAlgo, []Op{{Key: "b", Dirent: nil}}, 0, true, c, "req2")
	if err := mgr.Add(txn1); err != nil {
		t.Fatalf("Add(txn1): %v", err)
	}
	if err := mgr.Add(txn2); err != nil {
		t.Fatalf("Add(txn2): %v", err)
	}
	if n := mgr.MergeReady(); n != 1 {
		t.Fatalf("MergeReady() = %d, want 1", n)
	}

	merged := mgr.Front()
	merged.state = StateError
	merged.err = errors.New("forced failure for the fallback test")

	if err := mgr.Remove(merged, true); err != nil {
		t.Fatalf("Remove(fallback=true): %v", err)
	}
	if mgr.Len() != 2 {
		t.Fatalf("queue len = %d, want 2 (originals requeued)", mgr.Len())
	}
	if mgr.Front() != txn1 {
		t.Fatalf("Front() did not return the first original at the head")
	}
	if txn1.flags&NoMerge == 0 || txn2.flags&NoMerge == 0 {
		t.Fatalf("fallback originals were not forced to NoMerge: txn1=%v txn2=%v", txn1.flags, txn2.flags)
	}
	if txn1.mergedFrom != nil || txn2.mergedFrom != nil {
		t.Fatalf("fallback originals still carry merge markers")
	}

	// With NoMerge forced, a second MergeReady must not re-merge them.
	if n := mgr.MergeReady(); n != 0 {
		t.Fatalf("MergeReady() after fallback = %d, want 0 (originals must not re-merge)", n)
	}
}
