// Package rpc serves kvsd's KVSService over gRPC, translating between
// api/kvspb wire messages and the pkg/kvs.Namespace/pkg/kvstxn/pkg/treeobj
// core.
package rpc

import (
	"context"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/cuemby/kvsd/api/kvspb"
	"github.com/cuemby/kvsd/pkg/blobref"
	"github.com/cuemby/kvsd/pkg/events"
	"github.com/cuemby/kvsd/pkg/kvs"
	"github.com/cuemby/kvsd/pkg/kvserr"
	"github.com/cuemby/kvsd/pkg/kvstxn"
	"github.com/cuemby/kvsd/pkg/treeobj"
)

// Server implements kvspb.KVSServiceServer over a fixed set of namespaces.
type Server struct {
	kvspb.UnimplementedKVSServiceServer

	namespaces map[string]*kvs.Namespace
	broker     *events.Broker

	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer returns a Server dispatching to namespaces by name. broker may
// be nil, in which case Watch rejects every request with Unimplemented.
func NewServer(namespaces map[string]*kvs.Namespace, broker *events.Broker) *Server {
	return &Server{namespaces: namespaces, broker: broker}
}

// Start binds addr and serves KVSService until Stop is called or Serve
// returns an error.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("rpc: listen %s: %w", addr, err)
	}
	s.listener = lis

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(MetricsInterceptor()))
	kvspb.RegisterKVSServiceServer(s.grpcServer, s)

	return s.grpcServer.Serve(lis)
}

// Addr returns the address Start bound to, once listening has begun.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully drains in-flight RPCs and shuts the server down.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

func (s *Server) namespace(name string) (*kvs.Namespace, error) {
	ns, ok := s.namespaces[name]
	if !ok {
		return nil, kvserr.New(kvserr.InvalidArgument, fmt.Sprintf("unknown namespace %q", name))
	}
	return ns, nil
}

// Commit implements kvspb.KVSServiceServer.
func (s *Server) Commit(ctx context.Context, req *kvspb.CommitRequest) (*kvspb.CommitResponse, error) {
	ns, err := s.namespace(req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	ops, err := decodeOps(req.Ops)
	if err != nil {
		return nil, toStatus(err)
	}
	flags := kvstxn.TxnFlag(0)
	if req.Sync {
		flags |= kvstxn.Sync
	}
	if req.NoMerge {
		flags |= kvstxn.NoMerge
	}
	root, err := ns.Commit(ctx, req.Requestor, ops, flags)
	if err != nil {
		return nil, toStatus(err)
	}
	return &kvspb.CommitResponse{Root: string(root)}, nil
}

// Fence implements kvspb.KVSServiceServer.
func (s *Server) Fence(ctx context.Context, req *kvspb.FenceRequest) (*kvspb.FenceResponse, error) {
	ns, err := s.namespace(req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	ops, err := decodeOps(req.Ops)
	if err != nil {
		return nil, toStatus(err)
	}
	flags := kvstxn.TxnFlag(0)
	if req.Sync {
		flags |= kvstxn.Sync
	}
	if req.NoMerge {
		flags |= kvstxn.NoMerge
	}
	root, seq, ready, err := ns.Fence(ctx, req.Requestor, req.Name, int(req.Nprocs), ops, flags)
	if err != nil {
		return nil, toStatus(err)
	}
	return &kvspb.FenceResponse{Root: string(root), Seq: seq, Ready: ready}, nil
}

// GetRoot implements kvspb.KVSServiceServer.
func (s *Server) GetRoot(ctx context.Context, req *kvspb.GetRootRequest) (*kvspb.GetRootResponse, error) {
	ns, err := s.namespace(req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	root, seq := ns.GetRoot()
	return &kvspb.GetRootResponse{Root: string(root), Seq: seq}, nil
}

// Lookup implements kvspb.KVSServiceServer.
func (s *Server) Lookup(ctx context.Context, req *kvspb.LookupRequest) (*kvspb.LookupResponse, error) {
	ns, err := s.namespace(req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	entry, err := ns.Lookup(ctx, req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	enc, err := treeobj.Encode(entry)
	if err != nil {
		return nil, toStatus(kvserr.Wrap(kvserr.Unrecoverable, "encode result", err))
	}
	return &kvspb.LookupResponse{Treeobj: enc}, nil
}

// LookupAt implements kvspb.KVSServiceServer.
func (s *Server) LookupAt(ctx context.Context, req *kvspb.LookupAtRequest) (*kvspb.LookupResponse, error) {
	ns, err := s.namespace(req.Namespace)
	if err != nil {
		return nil, toStatus(err)
	}
	entry, err := ns.LookupAt(ctx, blobref.Blobref(req.Root), req.Key)
	if err != nil {
		return nil, toStatus(err)
	}
	enc, err := treeobj.Encode(entry)
	if err != nil {
		return nil, toStatus(kvserr.Wrap(kvserr.Unrecoverable, "encode result", err))
	}
	return &kvspb.LookupResponse{Treeobj: enc}, nil
}

// Watch implements kvspb.KVSServiceServer, streaming events from the
// broker until the client disconnects or the broker is stopped.
func (s *Server) Watch(req *kvspb.WatchRequest, stream kvspb.KVSService_WatchServer) error {
	if s.broker == nil {
		return status.Error(codes.Unimplemented, "server has no event broker configured")
	}
	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			if req.Namespace != "" && ev.Metadata["namespace"] != req.Namespace {
				continue
			}
			if err := stream.Send(toWireEvent(ev)); err != nil {
				return err
			}
		}
	}
}

func decodeOps(in []*kvspb.Op) ([]kvstxn.Op, error) {
	ops := make([]kvstxn.Op, 0, len(in))
	for _, o := range in {
		op := kvstxn.Op{Key: o.Key}
		if o.Append {
			op.Flags |= kvstxn.OpAppend
		}
		if len(o.Dirent) > 0 {
			t, err := treeobj.Decode(o.Dirent)
			if err != nil {
				return nil, kvserr.Wrap(kvserr.BadEncoding, "decode op dirent", err)
			}
			op.Dirent = t
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func toWireEvent(ev *events.Event) *kvspb.Event {
	return &kvspb.Event{
		Type:      string(ev.Type),
		Timestamp: timestamppb.New(ev.Timestamp),
		Message:   ev.Message,
		Metadata:  ev.Metadata,
	}
}

// toStatus maps a kvserr.Kind to the gRPC status code a client should act
// on; everything outside kvserr's taxonomy is reported as Internal.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := kvserr.Of(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	var code codes.Code
	switch kind {
	case kvserr.NoEntry:
		code = codes.NotFound
	case kvserr.InvalidArgument, kvserr.BadEncoding:
		code = codes.InvalidArgument
	case kvserr.IsDirectory, kvserr.NotDirectory:
		code = codes.FailedPrecondition
	case kvserr.NotSupported:
		code = codes.Unimplemented
	case kvserr.NoSpace:
		code = codes.ResourceExhausted
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
