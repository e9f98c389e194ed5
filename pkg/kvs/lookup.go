package kvs

import (
	"context"

	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// Lookup resolves key against the namespace's current root.
func (n *Namespace) Lookup(ctx context.Context, key string) (*treeobj.Treeobj, error) {
	n.mu.Lock()
	root := n.root
	n.mu.Unlock()
	return n.LookupAt(ctx, root, key)
}

// LookupAt resolves key against a specific historical root, loading
// whatever dirrefs it needs from the content store on demand. Unlike
// Commit, a lookup never mutates the tree and so never goes through
// kvstxn — it is a read-only walk that stops at the first symlink it
// cannot resolve within this namespace (a cross-namespace symlink target
// must be looked up by the caller against the other namespace directly).
func (n *Namespace) LookupAt(ctx context.Context, root blobref.Blobref, key string) (*treeobj.Treeobj, error) {
	norm, err := treeobj.NormalizeKey(key)
	if err != nil {
		return nil, kvserr.Wrap(kvserr.InvalidArgument, "bad key", err)
	}

	obj, err := n.load(ctx, root)
	if err != nil {
		return nil, err
	}
	if norm == "." {
		return obj, nil
	}

	parts := treeobj.SplitKey(norm)
	for depth := 0; depth < 64; depth++ { // bounds pathological symlink chains
		cur := obj
		for i, name := range parts {
			if !cur.IsDir() {
				return nil, kvserr.New(kvserr.NotDirectory, "path component is not a directory")
			}
			entry, _ := cur.GetEntry(name)
			if entry == nil {
				return nil, kvserr.New(kvserr.NoEntry, "no such key")
			}
			if entry.IsDirref() {
				ref, _ := entry.GetBlobref(0)
				child, err := n.load(ctx, ref)
				if err != nil {
					return nil, err
				}
				entry = child
			}
			if i == len(parts)-1 {
				if entry.IsSymlink() {
					ns, target := entry.GetSymlink()
					if ns != "" && ns != n.Name {
						return entry, nil // caller resolves cross-namespace targets itself
					}
					parts = treeobj.SplitKey(target)
					obj, err = n.load(ctx, root)
					if err != nil {
						return nil, err
					}
					goto restart
				}
				return entry, nil
			}
			if entry.IsSymlink() {
				ns, target := entry.GetSymlink()
				if ns != "" && ns != n.Name {
					return nil, kvserr.New(kvserr.InvalidArgument, "symlink targets a different namespace")
				}
				parts = append(treeobj.SplitKey(target), parts[i+1:]...)
				obj, err = n.load(ctx, root)
				if err != nil {
					return nil, err
				}
				goto restart
			}
			cur = entry
		}
		return nil, kvserr.New(kvserr.NoEntry, "empty key")
	restart:
		continue
	}
	return nil, kvserr.New(kvserr.Unrecoverable, "symlink chain too deep")
}

// load decodes the tree object at ref, consulting the cache first and
// falling back to the content store.
func (n *Namespace) load(ctx context.Context, ref blobref.Blobref) (*treeobj.Treeobj, error) {
	n.mu.Lock()
	e := n.cache.Lookup(ref)
	n.mu.Unlock()
	if e != nil && e.Valid() {
		return e.Treeobj()
	}

	b, err := n.store.Load(ctx, ref)
	if err != nil {
		return nil, kvserr.Wrap(kvserr.NoEntry, "load blob", err)
	}

	n.mu.Lock()
	e = n.cache.LookupOrInsert(ref)
	setErr := n.cache.SetRaw(e, b)
	n.mu.Unlock()
	if setErr != nil {
		return nil, kvserr.Wrap(kvserr.Unrecoverable, "cache corruption", setErr)
	}
	return treeobj.Decode(b)
}
