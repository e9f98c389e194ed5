/*
Package kvs is the top-level service: it ties a namespace's kvstxn.TxnMgr,
cache.Cache, content.Store, and (for the primary namespace) rootlog.RootLog
together into Commit, Fence, GetRoot, Lookup, and LookupAt operations.

Where kvstxn.Txn is a pure state machine driven by stalls, Namespace is the
driver that resolves those stalls against real collaborators: it loads
missing blobrefs from the content store, flushes dirty cache entries back
to it (bounded by an errgroup per spec.md §5's concurrency note), and
checkpoints through rootlog for SYNC commits.

Each Namespace serializes its own commits behind a mutex, matching the
single-threaded cooperative reactor spec.md §5 requires for the commit
engine itself — concurrent callers queue for their turn rather than racing
kvstxn's state.
*/
package kvs
