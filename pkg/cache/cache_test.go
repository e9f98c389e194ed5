package cache

import (
	"testing"

	"github.com/cuemby/kvsd/pkg/blobref"
)

func TestInsertDuplicateFails(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	if _, err := c.Insert(ref); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if _, err := c.Insert(ref); err == nil {
		t.Errorf("Insert() duplicate succeeded, want error")
	}
}

func TestSetRawWakesWaitersInFIFOOrder(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	e, _ := c.Insert(ref)

	var order []int
	c.AddWaiter(e, func(*Entry) { order = append(order, 1) })
	c.AddWaiter(e, func(*Entry) { order = append(order, 2) })
	c.AddWaiter(e, func(*Entry) { order = append(order, 3) })

	if err := c.SetRaw(e, []byte("data")); err != nil {
		t.Fatalf("SetRaw() error = %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("waiters ran out of order: %v", order)
	}
	if !e.Valid() {
		t.Errorf("entry not valid after SetRaw")
	}
}

func TestSetRawIdempotent(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	e, _ := c.Insert(ref)
	if err := c.SetRaw(e, []byte("data")); err != nil {
		t.Fatalf("SetRaw() error = %v", err)
	}
	if err := c.SetRaw(e, []byte("data")); err != nil {
		t.Errorf("SetRaw() idempotent call failed: %v", err)
	}
	if err := c.SetRaw(e, []byte("different")); err == nil {
		t.Errorf("SetRaw() with different bytes succeeded, want corruption error")
	}
}

func TestRemoveForbiddenWhileDirty(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	e, _ := c.Insert(ref)
	c.SetRaw(e, []byte("data"))
	if err := c.SetDirty(e, true); err != nil {
		t.Fatalf("SetDirty() error = %v", err)
	}
	if ok, err := c.Remove(ref, false); ok || err == nil {
		t.Errorf("Remove() on dirty entry = (%v, %v), want (false, error)", ok, err)
	}
	if ok, err := c.Remove(ref, true); !ok || err != nil {
		t.Errorf("Remove(force) = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestEvictRespectsRefcountAndDirty(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	e, _ := c.Insert(ref)
	c.SetRaw(e, []byte("data"))

	e.Take()
	if c.Evict(ref) {
		t.Errorf("Evict() succeeded with positive refcount")
	}
	e.Release()

	c.SetDirty(e, true)
	if c.Evict(ref) {
		t.Errorf("Evict() succeeded while dirty")
	}
	c.SetDirty(e, false)
	if !c.Evict(ref) {
		t.Errorf("Evict() failed on clean, unreferenced entry")
	}
}

func TestSetDirtyRejectsInvalidEntry(t *testing.T) {
	c := New()
	ref := blobref.Blobref("sha1-aaaa")
	e, _ := c.Insert(ref)
	if err := c.SetDirty(e, true); err == nil {
		t.Errorf("SetDirty(true) on invalid entry succeeded, want error")
	}
}
