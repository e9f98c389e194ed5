package kvstxn

import (
	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// storeWalk rewrites dir's entries in place (spec.md §4.4.2 STORE): every
// dir child is recursed into depth-first, then flattened to a dirref over
// its freshly-encoded blob; every oversized val is externalized to a
// valref. dir itself is left as a literal dir — the caller encodes and
// stores it to obtain the new root.
func (t *Txn) storeWalk(dir *treeobj.Treeobj) (*treeobj.Treeobj, error) {
	keys, err := dir.DirKeys()
	if err != nil {
		return nil, kvserr.Wrap(kvserr.Unrecoverable, "dir keys", err)
	}
	out := dir
	for _, k := range keys {
		child, _ := out.GetEntry(k)
		newChild, err := t.storeRewrite(child)
		if err != nil {
			return nil, err
		}
		if newChild != child {
			out, err = out.InsertEntryNoValidate(k, newChild)
			if err != nil {
				return nil, kvserr.Wrap(kvserr.Unrecoverable, "rewrite dir entry", err)
			}
		}
	}
	return out, nil
}

func (t *Txn) storeRewrite(o *treeobj.Treeobj) (*treeobj.Treeobj, error) {
	switch {
	case o.IsDir():
		rewritten, err := t.storeWalk(o)
		if err != nil {
			return nil, err
		}
		enc, err := treeobj.Encode(rewritten)
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "encode subdir", err)
		}
		ref, err := t.storeBlob(enc)
		if err != nil {
			return nil, err
		}
		dirref, err := treeobj.CreateDirref(ref)
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "build dirref", err)
		}
		return dirref, nil

	case o.IsVal():
		b, err := o.DecodeVal()
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "decode val", err)
		}
		if len(b) <= blobref.MaxStringSize {
			return o, nil
		}
		ref, err := t.storeBlob(b)
		if err != nil {
			return nil, err
		}
		valref, err := treeobj.CreateValref(ref)
		if err != nil {
			return nil, kvserr.Wrap(kvserr.Unrecoverable, "build valref", err)
		}
		return valref, nil

	default:
		return o, nil
	}
}
