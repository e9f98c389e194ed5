/*
Package cache implements the in-memory blobref→entry map that sits
between the transaction processor and the content store (spec.md §3.3,
§4.3). A cache never performs I/O itself: entries start invalid, and
some other collaborator (pkg/kvs's Namespace, in this repo) loads
the missing blob out of band and calls SetRaw to transition the entry to
valid, waking any waiters that were blocked on it.

Cache is deliberately lock-free: spec.md §5 puts the whole engine on a
single-threaded cooperative reactor, so the cache's only job is bookkeeping
invariants (dirty entries are never evicted, valid data is immutable),
not concurrency control. Clearing a dirty bit after a successful store is
left to the caller; SetDirty does not check it.
*/
package cache
