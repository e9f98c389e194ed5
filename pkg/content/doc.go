/*
Package content defines the external content-store collaborator kvsd's
transaction processor treats as an opaque key→blob map (spec.md §6.1),
and ships one concrete implementation, BoltStore, backed by
go.etcd.io/bbolt — adapted from the teacher's pkg/storage bbolt-backed
Store, generalized from a cluster-object table set to a single
blobref→bytes bucket.

Store is the only contract pkg/cache and pkg/kvstxn depend on; swapping
BoltStore for another backing store (or a test fake) requires no change
above this package.
*/
package content
