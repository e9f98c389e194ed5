package kvspb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// KVSServiceClient is the client API for KVSService.
type KVSServiceClient interface {
	Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error)
	Fence(ctx context.Context, in *FenceRequest, opts ...grpc.CallOption) (*FenceResponse, error)
	GetRoot(ctx context.Context, in *GetRootRequest, opts ...grpc.CallOption) (*GetRootResponse, error)
	Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error)
	LookupAt(ctx context.Context, in *LookupAtRequest, opts ...grpc.CallOption) (*LookupResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (KVSService_WatchClient, error)
}

type kvsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewKVSServiceClient returns a KVSServiceClient backed by cc.
func NewKVSServiceClient(cc grpc.ClientConnInterface) KVSServiceClient {
	return &kvsServiceClient{cc}
}

func (c *kvsServiceClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error) {
	out := new(CommitResponse)
	if err := c.cc.Invoke(ctx, "/kvspb.KVSService/Commit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvsServiceClient) Fence(ctx context.Context, in *FenceRequest, opts ...grpc.CallOption) (*FenceResponse, error) {
	out := new(FenceResponse)
	if err := c.cc.Invoke(ctx, "/kvspb.KVSService/Fence", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvsServiceClient) GetRoot(ctx context.Context, in *GetRootRequest, opts ...grpc.CallOption) (*GetRootResponse, error) {
	out := new(GetRootResponse)
	if err := c.cc.Invoke(ctx, "/kvspb.KVSService/GetRoot", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvsServiceClient) Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	if err := c.cc.Invoke(ctx, "/kvspb.KVSService/Lookup", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvsServiceClient) LookupAt(ctx context.Context, in *LookupAtRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	if err := c.cc.Invoke(ctx, "/kvspb.KVSService/LookupAt", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kvsServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (KVSService_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &kvsServiceServiceDesc.Streams[0], "/kvspb.KVSService/Watch", opts...)
	if err != nil {
		return nil, err
	}
	x := &kvsServiceWatchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// KVSService_WatchClient is the client-side stream handle for Watch.
type KVSService_WatchClient interface {
	Recv() (*Event, error)
	grpc.ClientStream
}

type kvsServiceWatchClient struct {
	grpc.ClientStream
}

func (x *kvsServiceWatchClient) Recv() (*Event, error) {
	m := new(Event)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// KVSServiceServer is the server API for KVSService.
type KVSServiceServer interface {
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	Fence(context.Context, *FenceRequest) (*FenceResponse, error)
	GetRoot(context.Context, *GetRootRequest) (*GetRootResponse, error)
	Lookup(context.Context, *LookupRequest) (*LookupResponse, error)
	LookupAt(context.Context, *LookupAtRequest) (*LookupResponse, error)
	Watch(*WatchRequest, KVSService_WatchServer) error
}

// UnimplementedKVSServiceServer can be embedded by a Server to satisfy
// KVSServiceServer without implementing every method, for forward
// compatibility with methods added to this package later.
type UnimplementedKVSServiceServer struct{}

func (UnimplementedKVSServiceServer) Commit(context.Context, *CommitRequest) (*CommitResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Commit not implemented")
}

func (UnimplementedKVSServiceServer) Fence(context.Context, *FenceRequest) (*FenceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Fence not implemented")
}

func (UnimplementedKVSServiceServer) GetRoot(context.Context, *GetRootRequest) (*GetRootResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRoot not implemented")
}

func (UnimplementedKVSServiceServer) Lookup(context.Context, *LookupRequest) (*LookupResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Lookup not implemented")
}

func (UnimplementedKVSServiceServer) LookupAt(context.Context, *LookupAtRequest) (*LookupResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LookupAt not implemented")
}

func (UnimplementedKVSServiceServer) Watch(*WatchRequest, KVSService_WatchServer) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

// RegisterKVSServiceServer registers srv with s.
func RegisterKVSServiceServer(s grpc.ServiceRegistrar, srv KVSServiceServer) {
	s.RegisterService(&kvsServiceServiceDesc, srv)
}

func _KVSService_Commit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CommitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVSServiceServer).Commit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvspb.KVSService/Commit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVSServiceServer).Commit(ctx, req.(*CommitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVSService_Fence_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FenceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVSServiceServer).Fence(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvspb.KVSService/Fence"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVSServiceServer).Fence(ctx, req.(*FenceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVSService_GetRoot_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRootRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVSServiceServer).GetRoot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvspb.KVSService/GetRoot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVSServiceServer).GetRoot(ctx, req.(*GetRootRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVSService_Lookup_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVSServiceServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvspb.KVSService/Lookup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVSServiceServer).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVSService_LookupAt_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupAtRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KVSServiceServer).LookupAt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kvspb.KVSService/LookupAt"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KVSServiceServer).LookupAt(ctx, req.(*LookupAtRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _KVSService_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(KVSServiceServer).Watch(m, &kvsServiceWatchServer{stream})
}

// KVSService_WatchServer is the server-side stream handle for Watch.
type KVSService_WatchServer interface {
	Send(*Event) error
	grpc.ServerStream
}

type kvsServiceWatchServer struct {
	grpc.ServerStream
}

func (x *kvsServiceWatchServer) Send(m *Event) error {
	return x.ServerStream.SendMsg(m)
}

var kvsServiceServiceDesc = grpc.ServiceDesc{
	ServiceName: "kvspb.KVSService",
	HandlerType: (*KVSServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Commit", Handler: _KVSService_Commit_Handler},
		{MethodName: "Fence", Handler: _KVSService_Fence_Handler},
		{MethodName: "GetRoot", Handler: _KVSService_GetRoot_Handler},
		{MethodName: "Lookup", Handler: _KVSService_Lookup_Handler},
		{MethodName: "LookupAt", Handler: _KVSService_LookupAt_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _KVSService_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "kvspb/kvs.proto",
}
