// Package client wraps kvspb.KVSServiceClient for CLI usage, one method
// per RPC with the request/response types flattened into plain arguments.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/kvsd/api/kvspb"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

const defaultTimeout = 10 * time.Second

// Client wraps a KVSService connection for easy CLI usage. kvsd's gRPC
// surface carries no TLS/auth layer, so unlike the teacher's mTLS-gated
// client this dials plain insecure.NewCredentials().
type Client struct {
	conn   *grpc.ClientConn
	client kvspb.KVSServiceClient
}

// NewClient dials addr and returns a ready Client.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: kvspb.NewKVSServiceClient(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Op is one write or unlink to submit through Commit.
type Op struct {
	Key    string
	Dirent *treeobj.Treeobj // nil means unlink
	Append bool
}

// Commit submits ops as a single transaction against namespace and
// returns the namespace's new root.
func (c *Client) Commit(namespace, requestor string, ops []Op, sync, noMerge bool) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	wireOps, err := encodeOps(ops)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Commit(ctx, &kvspb.CommitRequest{
		Namespace: namespace,
		Requestor: requestor,
		Ops:       wireOps,
		Sync:      sync,
		NoMerge:   noMerge,
	})
	if err != nil {
		return "", err
	}
	return resp.Root, nil
}

// Fence submits ops as requestor's contribution to the named barrier under
// namespace. Once nprocs distinct submissions for name have arrived, their
// ops are merged in submission order and committed together; ready reports
// whether this call's submission was the one that completed the barrier.
// While ready is false, root/seq reflect the namespace's state at
// submission time, not the outcome of a commit.
func (c *Client) Fence(namespace, requestor, name string, nprocs int, ops []Op, sync, noMerge bool) (root string, seq uint64, ready bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	wireOps, err := encodeOps(ops)
	if err != nil {
		return "", 0, false, err
	}

	resp, err := c.client.Fence(ctx, &kvspb.FenceRequest{
		Namespace: namespace,
		Requestor: requestor,
		Name:      name,
		Nprocs:    int32(nprocs),
		Ops:       wireOps,
		Sync:      sync,
		NoMerge:   noMerge,
	})
	if err != nil {
		return "", 0, false, err
	}
	return resp.Root, resp.Seq, resp.Ready, nil
}

// GetRoot returns namespace's current root and sequence number.
func (c *Client) GetRoot(namespace string) (string, uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	resp, err := c.client.GetRoot(ctx, &kvspb.GetRootRequest{Namespace: namespace})
	if err != nil {
		return "", 0, err
	}
	return resp.Root, resp.Seq, nil
}

// Lookup resolves key against namespace's current root.
func (c *Client) Lookup(namespace, key string) (*treeobj.Treeobj, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	resp, err := c.client.Lookup(ctx, &kvspb.LookupRequest{Namespace: namespace, Key: key})
	if err != nil {
		return nil, err
	}
	return treeobj.Decode(resp.Treeobj)
}

// LookupAt resolves key against a caller-supplied historical root.
func (c *Client) LookupAt(namespace, root, key string) (*treeobj.Treeobj, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	resp, err := c.client.LookupAt(ctx, &kvspb.LookupAtRequest{Namespace: namespace, Root: root, Key: key})
	if err != nil {
		return nil, err
	}
	return treeobj.Decode(resp.Treeobj)
}

// Watch opens a server-streaming subscription to namespace's commit and
// checkpoint events. An empty namespace receives events from all
// namespaces. The returned stream must be drained with Recv until it
// returns an error (including context cancellation).
func (c *Client) Watch(ctx context.Context, namespace string) (kvspb.KVSService_WatchClient, error) {
	return c.client.Watch(ctx, &kvspb.WatchRequest{Namespace: namespace})
}

func encodeOps(ops []Op) ([]*kvspb.Op, error) {
	wire := make([]*kvspb.Op, 0, len(ops))
	for _, o := range ops {
		w := &kvspb.Op{Key: o.Key, Append: o.Append}
		if o.Dirent != nil {
			enc, err := treeobj.Encode(o.Dirent)
			if err != nil {
				return nil, fmt.Errorf("client: encode op %q: %w", o.Key, err)
			}
			w.Dirent = enc
		}
		wire = append(wire, w)
	}
	return wire, nil
}
