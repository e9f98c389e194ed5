/*
Package treeobj implements the tagged, versioned tree-object records that
form kvsd's Merkle-like directory tree over the content store: val,
valref, dir, dirref, and symlink.

A Treeobj is immutable by convention once returned from a constructor or
Decode; callers that need to mutate one (insert/delete a dir entry,
append a blobref) get a new value back rather than mutating in place,
mirroring the reference-counted JSON objects the original C
implementation copies on write. Encoding is deterministic: Encode(o)
always produces the same bytes for structurally equal o, with dir
entries in sorted key order, so two independently constructed trees that
describe the same data hash to the same blobref.
*/
package treeobj
