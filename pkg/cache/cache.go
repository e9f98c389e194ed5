package cache

import (
	"bytes"
	"fmt"

	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// Waiter is invoked, in the order it was registered, when its entry
// transitions from invalid to valid.
type Waiter func(*Entry)

// Entry is a single cached blob, addressed by its blobref.
//
// Entry's fields are only ever touched from the single reactor goroutine
// that owns the Cache it belongs to (spec.md §5); there is no internal
// locking.
type Entry struct {
	Ref      blobref.Blobref
	raw      []byte
	obj      *treeobj.Treeobj
	valid    bool
	dirty    bool
	refcount int
	waiters  []Waiter
}

// Valid reports whether the entry has data.
func (e *Entry) Valid() bool { return e.valid }

// Dirty reports whether the entry still needs to be flushed to the
// content store.
func (e *Entry) Dirty() bool { return e.dirty }

// Refcount returns the entry's current external reference count.
func (e *Entry) Refcount() int { return e.refcount }

// Raw returns the entry's bytes. It is nil until Valid().
func (e *Entry) Raw() []byte { return e.raw }

// Treeobj lazily parses and caches a treeobj view over the entry's raw
// bytes. Per spec.md §3.3, the parsed view aliases the raw storage; the
// caller must Copy/DeepCopy before mutating anything derived from it.
func (e *Entry) Treeobj() (*treeobj.Treeobj, error) {
	if !e.valid {
		return nil, fmt.Errorf("cache: entry %s is not valid", e.Ref)
	}
	if e.obj == nil {
		o, err := treeobj.Decode(e.raw)
		if err != nil {
			return nil, err
		}
		e.obj = o
	}
	return e.obj, nil
}

// Take increments the entry's external refcount, pinning it against
// eviction.
func (e *Entry) Take() { e.refcount++ }

// Release decrements the entry's external refcount. It is a programming
// error to call Release more times than Take.
func (e *Entry) Release() {
	if e.refcount == 0 {
		panic("cache: Release on entry with zero refcount")
	}
	e.refcount--
}

// Cache is an associative blobref→Entry map. It never initiates I/O.
type Cache struct {
	entries map[blobref.Blobref]*Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[blobref.Blobref]*Entry)}
}

// Lookup returns the entry for ref, or nil if absent. It never triggers a
// load.
func (c *Cache) Lookup(ref blobref.Blobref) *Entry {
	return c.entries[ref]
}

// Insert adds a new, initially invalid entry for ref. It fails if ref is
// already present.
func (c *Cache) Insert(ref blobref.Blobref) (*Entry, error) {
	if _, ok := c.entries[ref]; ok {
		return nil, fmt.Errorf("cache: duplicate entry for %s", ref)
	}
	e := &Entry{Ref: ref}
	c.entries[ref] = e
	return e, nil
}

// LookupOrInsert returns the existing entry for ref, inserting a new
// invalid one if absent.
func (c *Cache) LookupOrInsert(ref blobref.Blobref) *Entry {
	if e, ok := c.entries[ref]; ok {
		return e
	}
	e := &Entry{Ref: ref}
	c.entries[ref] = e
	return e
}

// InsertValid inserts ref already populated with raw bytes, marked valid
// and optionally dirty. Used when STORE materializes a freshly-encoded
// tree object: the bytes are known without a round trip through the
// content store.
func (c *Cache) InsertValid(ref blobref.Blobref, raw []byte, dirty bool) (*Entry, error) {
	e, err := c.Insert(ref)
	if err != nil {
		// Two transactions computing the same sub-tree is expected
		// (spec.md §5); reuse the existing entry rather than failing.
		existing := c.entries[ref]
		if existing.valid && bytes.Equal(existing.raw, raw) {
			return existing, nil
		}
		return nil, err
	}
	e.raw = raw
	e.valid = true
	e.dirty = dirty
	return e, nil
}

// Remove deletes ref's entry. It is forbidden while the entry is dirty or
// has a positive refcount, unless force is true (used only by the owning
// transaction's rollback path).
func (c *Cache) Remove(ref blobref.Blobref, force bool) (bool, error) {
	e, ok := c.entries[ref]
	if !ok {
		return false, nil
	}
	if !force && (e.dirty || e.refcount > 0) {
		return false, fmt.Errorf("cache: cannot remove %s: dirty=%v refcount=%d", ref, e.dirty, e.refcount)
	}
	delete(c.entries, ref)
	return true, nil
}

// SetRaw transitions an invalid entry to valid, waking every registered
// waiter in FIFO order. Calling SetRaw on an already-valid entry with
// identical bytes is a no-op; differing bytes is a fatal corruption
// error, since a blobref is supposed to determine its content uniquely.
func (c *Cache) SetRaw(e *Entry, raw []byte) error {
	if e.valid {
		if bytes.Equal(e.raw, raw) {
			return nil
		}
		return fmt.Errorf("cache: corruption: %s already has different content", e.Ref)
	}
	e.raw = raw
	e.valid = true
	waiters := e.waiters
	e.waiters = nil
	for _, w := range waiters {
		w(e)
	}
	return nil
}

// AddWaiter registers fn to run when e becomes valid. If e is already
// valid, fn runs immediately.
func (c *Cache) AddWaiter(e *Entry, fn Waiter) {
	if e.valid {
		fn(e)
		return
	}
	e.waiters = append(e.waiters, fn)
}

// SetDirty sets or clears e's dirty bit. Marking an invalid entry dirty is
// an error, and clearing an invalid entry's bit is a no-op. On a valid
// entry both clean→dirty and dirty→clean are accepted without further
// checks: it does not verify that a flush has happened.
func (c *Cache) SetDirty(e *Entry, dirty bool) error {
	if !e.valid {
		if dirty {
			return fmt.Errorf("cache: cannot mark invalid entry %s dirty", e.Ref)
		}
		return nil
	}
	e.dirty = dirty
	return nil
}

// Evict removes ref if it is clean (not dirty) and has zero refcount.
// It reports whether the entry was removed.
func (c *Cache) Evict(ref blobref.Blobref) bool {
	e, ok := c.entries[ref]
	if !ok || e.dirty || e.refcount > 0 {
		return false
	}
	delete(c.entries, ref)
	return true
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int { return len(c.entries) }
