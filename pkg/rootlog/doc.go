/*
Package rootlog is the durability backend for SYNC_CHECKPOINT (spec.md
§4.4.2, SPEC_FULL.md §4). It replicates a narrow slice of state over Raft —
for each namespace, only its current (rootref, rootseq) pair — rather than
the whole KVS tree, keeping kvstxn's commit engine itself single-threaded
and free of any consensus dependency (spec.md §5). A kvstxn.Txn only talks
to rootlog through the SyncCheckpoint stall: the driver calls SetRoot and
reports the result back via Txn.SetCheckpointResult.
*/
package rootlog
