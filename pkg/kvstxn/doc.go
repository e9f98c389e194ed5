/*
Package kvstxn implements the core of kvsd: the per-transaction state
machine that walks a working copy of a namespace's root directory,
applies a transaction's operations against it, flushes newly produced
tree objects into the cache, and the TxnMgr that owns the FIFO of
pending transactions and the merge policy over it.

The state machine (Txn) is re-entrant and callback-free by design: Process
returns a Stall value describing what it is waiting on — missing blobrefs,
undrained dirty cache entries, a pending content-store flush, or a
pending checkpoint — and the caller resolves the dependency and calls
Process again. This makes the whole transaction engine testable without
any event loop or goroutine, matching spec.md §9's "stalls instead of
callbacks" design note.
*/
package kvstxn
