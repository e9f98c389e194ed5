package kvstxn

import (
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// linkDirent implements link_dirent (spec.md §4.4.4): it normalizes key,
// walks root to the named slot, and applies dirent there (nil meaning
// unlink). It returns the new root and whether the walk stalled on a
// missing dirref (in which case root is returned unchanged and the miss
// has already been recorded via t.missing).
func (t *Txn) linkDirent(root *treeobj.Treeobj, key string, dirent *treeobj.Treeobj, flags OpFlag) (*treeobj.Treeobj, bool, error) {
	norm, err := treeobj.NormalizeKey(key)
	if err != nil {
		return root, false, kvserr.Wrap(kvserr.InvalidArgument, "bad key", err)
	}
	if norm == "." {
		return root, false, kvserr.New(kvserr.InvalidArgument, "cannot write to the root key")
	}
	parts := treeobj.SplitKey(norm)
	newRoot, stalled, err, _ := t.linkWalk(root, root, parts, dirent, flags)
	return newRoot, stalled, err
}

// linkWalk walks one path component of parts against dir, recursing for
// the rest. root is the overall transaction root, threaded through only
// so a symlink hit can restart the whole walk against a rewritten key.
//
// The fourth return value, restarted, is true when a symlink caused the
// walk to restart from root: in that case dir (the first return value)
// is already the fully-rebuilt new root, and every enclosing call must
// propagate it upward unchanged rather than wrapping it as a child entry.
func (t *Txn) linkWalk(root, dir *treeobj.Treeobj, parts []string, dirent *treeobj.Treeobj, flags OpFlag) (*treeobj.Treeobj, bool, error, bool) {
	if !dir.IsDir() {
		return dir, false, kvserr.New(kvserr.Unrecoverable, "path component is not a directory"), false
	}

	name, rest := parts[0], parts[1:]
	entry, _ := dir.GetEntry(name)

	if len(rest) == 0 {
		newDir, err := t.linkTerminal(dir, name, entry, dirent, flags)
		return newDir, false, err, false
	}

	if entry != nil && entry.IsSymlink() {
		ns, target := entry.GetSymlink()
		if ns != "" && ns != t.namespace {
			return dir, false, kvserr.New(kvserr.InvalidArgument, "symlink targets a different namespace"), false
		}
		newParts := append(treeobj.SplitKey(target), rest...)
		newRoot, stalled, err, _ := t.linkWalk(root, root, newParts, dirent, flags)
		return newRoot, stalled, err, true
	}

	if entry != nil && entry.IsDirref() {
		ref, _ := entry.GetBlobref(0)
		ce := t.cache.Lookup(ref)
		if ce == nil || !ce.Valid() {
			t.missing.add(ref)
			return dir, true, nil, false
		}
		obj, err := ce.Treeobj()
		if err != nil {
			return dir, false, kvserr.Wrap(kvserr.Unrecoverable, "decode dirref", err), false
		}
		entry = obj.DeepCopy()
	} else if entry == nil || !entry.IsDir() {
		// Absent, or a scalar (val/valref) occupying an intermediate
		// position: both are treated as "make way for a directory"
		// unless this is an unlink of something that isn't there.
		if dirent == nil {
			return dir, false, nil, false
		}
		entry = treeobj.CreateDir()
	}

	newChild, stalled, err, restarted := t.linkWalk(root, entry, rest, dirent, flags)
	if restarted {
		return newChild, stalled, err, true
	}
	if err != nil || stalled {
		return dir, stalled, err, false
	}
	newDir, err := dir.InsertEntryNoValidate(name, newChild)
	return newDir, false, err, false
}

// linkTerminal applies dirent at the final path component name within dir,
// whose current occupant (possibly nil) is existing.
func (t *Txn) linkTerminal(dir *treeobj.Treeobj, name string, existing, dirent *treeobj.Treeobj, flags OpFlag) (*treeobj.Treeobj, error) {
	if dirent == nil {
		return dir.DeleteEntry(name)
	}
	if flags&OpAppend != 0 && existing != nil {
		appended, err := t.applyAppend(existing, dirent)
		if err != nil {
			return nil, err
		}
		return dir.InsertEntryNoValidate(name, appended)
	}
	return dir.InsertEntryNoValidate(name, dirent)
}

// applyAppend implements the append rule table of spec.md §4.4.6.
func (t *Txn) applyAppend(existing, newVal *treeobj.Treeobj) (*treeobj.Treeobj, error) {
	switch {
	case existing.IsValref():
		if !newVal.IsVal() {
			return nil, kvserr.New(kvserr.InvalidArgument, "append dirent must be a val")
		}
		b, err := newVal.DecodeVal()
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "decode append val", err)
		}
		ref, err := t.storeBlob(b)
		if err != nil {
			return nil, err
		}
		return treeobj.AppendBlobref(existing, ref)

	case existing.IsVal():
		if !newVal.IsVal() {
			return nil, kvserr.New(kvserr.InvalidArgument, "append dirent must be a val")
		}
		oldBytes, err := existing.DecodeVal()
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "decode existing val", err)
		}
		newBytes, err := newVal.DecodeVal()
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "decode append val", err)
		}
		ref1, err := t.storeBlob(oldBytes)
		if err != nil {
			return nil, err
		}
		ref2, err := t.storeBlob(newBytes)
		if err != nil {
			return nil, err
		}
		out, err := treeobj.CreateValref(ref1, ref2)
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "build valref", err)
		}
		return out, nil

	case existing.IsSymlink():
		return nil, kvserr.New(kvserr.NotSupported, "cannot append to a symlink")

	case existing.IsDir(), existing.IsDirref():
		return nil, kvserr.New(kvserr.IsDirectory, "cannot append to a directory")

	default:
		return nil, kvserr.New(kvserr.Unrecoverable, "corrupt treeobj entry")
	}
}
