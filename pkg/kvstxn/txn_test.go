package kvstxn

import (
	"testing"

	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/cache"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

const testAlgo = blobref.SHA1

// primeRoot encodes root, inserts it into c as a valid (clean) entry as if
// the content store had already loaded it, and returns its blobref.
func primeRoot(t *testing.T, c *cache.Cache, world map[blobref.Blobref][]byte, root *treeobj.Treeobj) blobref.Blobref {
	t.Helper()
	enc, err := treeobj.Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	ref, err := blobref.Hash(testAlgo, enc)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if _, err := c.InsertValid(ref, enc, false); err != nil {
		t.Fatalf("InsertValid: %v", err)
	}
	world[ref] = enc
	return ref
}

// drive runs txn to completion, resolving every stall automatically
// against world (a simulated content store) and the shared cache c.
func drive(t *testing.T, txn *Txn, c *cache.Cache, world map[blobref.Blobref][]byte, root blobref.Blobref, seq uint64) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		switch s := txn.Process(root, seq); s {
		case Finished:
			return
		case LoadMissingRefs:
			for _, ref := range txn.MissingRefs() {
				b, ok := world[ref]
				if !ok {
					t.Fatalf("drive: no such blob in world: %s", ref)
				}
				e := c.LookupOrInsert(ref)
				if err := c.SetRaw(e, b); err != nil {
					t.Fatalf("SetRaw: %v", err)
				}
			}
		case DirtyCacheEntries:
			for _, e := range txn.DirtyEntries() {
				world[e.Ref] = e.Raw()
				if err := c.SetDirty(e, false); err != nil {
					t.Fatalf("SetDirty: %v", err)
				}
			}
		case SyncContentFlush:
			txn.SetContentFlushResult(nil)
		case SyncCheckpoint:
			txn.SetCheckpointResult(nil)
		}
	}
	t.Fatalf("drive: txn did not finish")
}

func TestBasicCommitNestedKey(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)
	root := primeRoot(t, c, world, treeobj.CreateDir())

	ops := []Op{{Key: "a.b", Dirent: treeobj.CreateVal([]byte("hello"))}}
	txn := New("primary", testAlgo, ops, 0, true, c, "req1")
	drive(t, txn, c, world, root, 0)

	if txn.Err() != nil {
		t.Fatalf("txn failed: %v", txn.Err())
	}
	newroot := decodeFromWorld(t, world, txn.NewRoot())
	aDir := getDirEntry(t, newroot, "a")
	bVal := getDirEntry(t, aDir, "b")
	if !bVal.IsVal() {
		t.Fatalf("a.b is not a val")
	}
	got, _ := bVal.DecodeVal()
	if string(got) != "hello" {
		t.Errorf("a.b = %q, want %q", got, "hello")
	}
	if _, ok := txn.keys["a.b"]; !ok {
		t.Errorf("touched keys missing a.b: %v", txn.TouchedKeys())
	}
}

func TestAppendValThenValrefGrows(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)
	root := primeRoot(t, c, world, treeobj.CreateDir())

	// First txn: plain insert of a short val.
	txn1 := New("primary", testAlgo, []Op{{Key: "x", Dirent: treeobj.CreateVal([]byte("one"))}}, 0, true, c, "req1")
	drive(t, txn1, c, world, root, 0)
	if txn1.Err() != nil {
		t.Fatalf("txn1 failed: %v", txn1.Err())
	}
	root = txn1.NewRoot()

	// Second txn: append to the val, producing a 2-element valref.
	txn2 := New("primary", testAlgo, []Op{{Key: "x", Dirent: treeobj.CreateVal([]byte("two")), Flags: OpAppend}}, 0, true, c, "req2")
	drive(t, txn2, c, world, root, 1)
	if txn2.Err() != nil {
		t.Fatalf("txn2 failed: %v", txn2.Err())
	}
	root = txn2.NewRoot()

	newroot := decodeFromWorld(t, world, root)
	xEntry := getDirEntry(t, newroot, "x")
	if !xEntry.IsValref() {
		t.Fatalf("x is not a valref after append, got %v", xEntry.GetType())
	}
	if xEntry.GetCount() != 2 {
		t.Fatalf("x valref has %d refs, want 2", xEntry.GetCount())
	}

	// Third txn: append again, growing the valref to 3 elements.
	txn3 := New("primary", testAlgo, []Op{{Key: "x", Dirent: treeobj.CreateVal([]byte("three")), Flags: OpAppend}}, 0, true, c, "req3")
	drive(t, txn3, c, world, root, 2)
	if txn3.Err() != nil {
		t.Fatalf("txn3 failed: %v", txn3.Err())
	}
	finalRoot := decodeFromWorld(t, world, txn3.NewRoot())
	xEntry = getDirEntry(t, finalRoot, "x")
	if xEntry.GetCount() != 3 {
		t.Fatalf("x valref has %d refs after second append, want 3", xEntry.GetCount())
	}
}

func TestCompactOpsKeepsAroundAppend(t *testing.T) {
	ops := []Op{
		{Key: "k", Dirent: treeobj.CreateVal([]byte("a"))},
		{Key: "k", Dirent: treeobj.CreateVal([]byte("b")), Flags: OpAppend},
		{Key: "k", Dirent: treeobj.CreateVal([]byte("c"))},
		{Key: "k", Dirent: treeobj.CreateVal([]byte("d"))},
	}
	out := CompactOps(ops)
	// op 0 must survive: the append at op 1 depends on it.
	// op 2 is redundant: op 3 overwrites "k" with nothing appended in between.
	if len(out) != 3 {
		t.Fatalf("CompactOps() kept %d ops, want 3: %+v", len(out), out)
	}
	if out[0].Flags&OpAppend != 0 || out[1].Flags&OpAppend == 0 || out[2].Flags&OpAppend != 0 {
		t.Fatalf("CompactOps() dropped the wrong ops: %+v", out)
	}
}

func TestMissingRefStall(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)

	sub := treeobj.CreateDir()
	var err error
	sub, err = sub.InsertEntry("k", treeobj.CreateVal([]byte("v")))
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	subEnc, _ := treeobj.Encode(sub)
	subRef, _ := blobref.Hash(testAlgo, subEnc)
	world[subRef] = subEnc // in the content store, but NOT yet in the cache

	dirref, err := treeobj.CreateDirref(subRef)
	if err != nil {
		t.Fatalf("CreateDirref: %v", err)
	}
	top := treeobj.CreateDir()
	top, err = top.InsertEntryNoValidate("sub", dirref)
	if err != nil {
		t.Fatalf("InsertEntryNoValidate: %v", err)
	}
	root := primeRoot(t, c, world, top)

	txn := New("primary", testAlgo, []Op{{Key: "sub.k2", Dirent: treeobj.CreateVal([]byte("v2"))}}, 0, true, c, "req1")
	stall := txn.Process(root, 0)
	if stall != LoadMissingRefs {
		t.Fatalf("Process() = %v, want LoadMissingRefs", stall)
	}
	missing := txn.MissingRefs()
	if len(missing) != 1 || missing[0] != subRef {
		t.Fatalf("MissingRefs() = %v, want [%s]", missing, subRef)
	}

	// Resolve it and let the txn finish.
	e := c.LookupOrInsert(subRef)
	if err := c.SetRaw(e, subEnc); err != nil {
		t.Fatalf("SetRaw: %v", err)
	}
	drive(t, txn, c, world, root, 0)
	if txn.Err() != nil {
		t.Fatalf("txn failed: %v", txn.Err())
	}
}

func TestSymlinkTraversalRewritesKey(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)

	link, err := treeobj.CreateSymlink("", "dest")
	if err != nil {
		t.Fatalf("CreateSymlink: %v", err)
	}
	top := treeobj.CreateDir()
	top, err = top.InsertEntry("link", link)
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	root := primeRoot(t, c, world, top)

	txn := New("primary", testAlgo, []Op{{Key: "link.k", Dirent: treeobj.CreateVal([]byte("v"))}}, 0, true, c, "req1")
	drive(t, txn, c, world, root, 0)
	if txn.Err() != nil {
		t.Fatalf("txn failed: %v", txn.Err())
	}

	newroot := decodeFromWorld(t, world, txn.NewRoot())
	linkEntry := getDirEntry(t, newroot, "link")
	if !linkEntry.IsSymlink() {
		t.Fatalf("link was overwritten, got %v", linkEntry.GetType())
	}
	destDir := getDirEntry(t, newroot, "dest")
	kVal := getDirEntry(t, destDir, "k")
	got, _ := kVal.DecodeVal()
	if string(got) != "v" {
		t.Errorf("dest.k = %q, want %q", got, "v")
	}

	keys := txn.TouchedKeys()
	if len(keys) != 1 || keys[0] != "link.k" {
		t.Errorf("TouchedKeys() = %v, want [link.k] (the literal op key, not the resolved one)", keys)
	}
}

func TestSymlinkCrossNamespaceRejected(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)

	link, err := treeobj.CreateSymlink("other-namespace", "dest")
	if err != nil {
		t.Fatalf("CreateSymlink: %v", err)
	}
	top := treeobj.CreateDir()
	top, err = top.InsertEntry("link", link)
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}
	root := primeRoot(t, c, world, top)

	txn := New("primary", testAlgo, []Op{{Key: "link.k", Dirent: treeobj.CreateVal([]byte("v"))}}, 0, true, c, "req1")
	drive(t, txn, c, world, root, 0)
	if txn.Err() == nil {
		t.Fatalf("expected error, txn succeeded")
	}
	if kind, ok := kvserr.Of(txn.Err()); !ok || kind != kvserr.InvalidArgument {
		t.Errorf("Err() kind = %v, want InvalidArgument", txn.Err())
	}
}

func TestMergedTxnFailureFallback(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)
	root := primeRoot(t, c, world, treeobj.CreateDir())

	mgr := NewTxnMgr("primary")
	txn1 := New("primary", testAlgo, []Op{{Key: "a", Dirent: treeobj.CreateVal([]byte("1"))}}, 0, true, c, "req1")
	// txn2's op writes the root key itself, which link_dirent always
	// rejects — this is what makes the merged txn fail.
	txn2 := New("primary", testAlgo, []Op{{Key: ".", Dirent: treeobj.CreateVal([]byte("2"))}}, 0, true, c, "req2")
	if err := mgr.Add(txn1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := mgr.Add(txn2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n := mgr.MergeReady(); n != 1 {
		t.Fatalf("MergeReady() merged %d pairs, want 1", n)
	}
	if mgr.Len() != 1 {
		t.Fatalf("queue has %d entries after merge, want 1", mgr.Len())
	}

	merged := mgr.Front()
	drive(t, merged, c, world, root, 0)
	if merged.Err() == nil {
		t.Fatalf("merged txn succeeded, want failure")
	}

	originals, ok := Fallback(merged)
	if !ok || len(originals) != 2 {
		t.Fatalf("Fallback() = (%v, %v), want 2 originals", originals, ok)
	}
	if originals[0] != txn1 || originals[1] != txn2 {
		t.Fatalf("Fallback() returned the wrong originals")
	}
	if originals[0].State() != StateInit || originals[1].State() != StateInit {
		t.Fatalf("fallback originals were already processed")
	}

	// The driver would now re-add txn1 and txn2 individually; txn1 alone
	// must still succeed even though the merged attempt failed.
	solo := New("primary", testAlgo, originals[0].ops, originals[0].flags, originals[0].isPrimary, c, originals[0].Names...)
	drive(t, solo, c, world, root, 0)
	if solo.Err() != nil {
		t.Fatalf("solo replay of txn1 failed: %v", solo.Err())
	}
}

func TestSyncTxnRunsCheckpointStalls(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)
	root := primeRoot(t, c, world, treeobj.CreateDir())

	txn := New("primary", testAlgo, []Op{{Key: "a", Dirent: treeobj.CreateVal([]byte("1"))}}, Sync, true, c, "req1")

	drive(t, txn, c, world, root, 5)
	if txn.Err() != nil {
		t.Fatalf("sync txn failed: %v", txn.Err())
	}
	if txn.NewRootSeq() != 6 {
		t.Errorf("NewRootSeq() = %d, want 6", txn.NewRootSeq())
	}
}

func TestSyncRejectedOnNonPrimary(t *testing.T) {
	c := cache.New()
	world := make(map[blobref.Blobref][]byte)
	root := primeRoot(t, c, world, treeobj.CreateDir())

	txn := New("replica", testAlgo, []Op{{Key: "a", Dirent: treeobj.CreateVal([]byte("1"))}}, Sync, false, c, "req1")
	stall := txn.Process(root, 0)
	if stall != Finished || txn.Err() == nil {
		t.Fatalf("Process() = (%v, %v), want (Finished, non-nil error)", stall, txn.Err())
	}
	if kind, ok := kvserr.Of(txn.Err()); !ok || kind != kvserr.InvalidArgument {
		t.Errorf("Err() kind = %v, want InvalidArgument", txn.Err())
	}
}

func decodeFromWorld(t *testing.T, world map[blobref.Blobref][]byte, ref blobref.Blobref) *treeobj.Treeobj {
	t.Helper()
	b, ok := world[ref]
	if !ok {
		t.Fatalf("decodeFromWorld: %s not found", ref)
	}
	o, err := treeobj.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return o
}

func getDirEntry(t *testing.T, dir *treeobj.Treeobj, name string) *treeobj.Treeobj {
	t.Helper()
	e, err := dir.GetEntry(name)
	if err != nil {
		t.Fatalf("GetEntry(%q): %v", name, err)
	}
	if e == nil {
		t.Fatalf("GetEntry(%q): not found", name)
	}
	return e
}
