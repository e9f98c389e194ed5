/*
Package events provides an in-memory event broker for kvsd's watch-
adjacent notifications: a lightweight, non-blocking pub/sub bus so other
components (a gRPC watch stream, metrics, audit logging) can react to
commits without coupling to pkg/kvs directly.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	go func() {
		for evt := range sub {
			fmt.Println(evt.Type, evt.Metadata["namespace"], evt.Metadata["keys"])
		}
	}()

	ns.SetTouchHook(broker.PublishCommit)
	ns.SetFailHook(broker.PublishCommitFailed)
	ns.SetMergeHook(broker.PublishTxnMerged)
	ns.SetFallbackHook(broker.PublishTxnFallback)
	ns.SetCheckpointHook(broker.PublishCheckpointed)

# Event types

EventCommitOK / EventCommitFailed: one successful or failed commit, with
namespace and (for OK) the touched keys in Metadata.

EventTxnMerged / EventTxnFallback: TxnMgr merged a run of txns, or split
a failed merge back into its originals.

EventCheckpointed: a SYNC commit's root was durably recorded via rootlog.

EventRootlogLeader / EventRootlogFollower: this node's rootlog Raft
leadership changed.

# Design

Publish is non-blocking and best-effort: a full subscriber buffer skips
that subscriber rather than blocking the broadcast loop. This is fire-
and-forget notification, not a durable changefeed — a client that needs
every commit should poll GetRoot/Lookup rather than rely on watch alone.
*/
package events
