/*
Package client provides a Go client library for kvsd's KVSService gRPC API.

It wraps api/kvspb.KVSServiceClient with a convenient, idiomatic interface:
connection management and one method per RPC. Each unary method applies a
10-second default timeout; Watch runs under the caller's context. kvsd's gRPC surface carries no TLS/auth layer (see SPEC_FULL.md's
Non-goals), so unlike a cluster-facing client this dials plain insecure
credentials; callers that need transport security should wrap the dial
with their own grpc.DialOption.

# Usage

	c, err := client.NewClient("kvsd-1:7760")
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	root, err := c.Commit("primary", "cli", []client.Op{
		{Key: "a.b.c", Dirent: treeobj.CreateVal([]byte("hello"))},
	}, false, false)

	entry, err := c.Lookup("primary", "a.b.c")

# Watching events

Watch opens a server-streaming subscription and must be drained until Recv
returns an error:

	stream, err := c.Watch(ctx, "primary")
	for {
		ev, err := stream.Recv()
		if err != nil {
			break
		}
		fmt.Println(ev.Type, ev.Message)
	}

# Thread safety

The client is safe for concurrent use: gRPC connections are thread-safe by
design and the wrapper holds no mutable state beyond the connection itself.
*/
package client
