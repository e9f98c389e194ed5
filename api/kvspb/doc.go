/*
Package kvspb defines kvsd's gRPC wire contract: the request/response
message types and KVSService client/server stubs that pkg/rpc serves and
pkg/client calls.

# Why this isn't protoc output

The teacher (cuemby-warren) defines its API in api/proto, compiled by
protoc-gen-go/protoc-gen-go-grpc into generated .pb.go files carrying a
real protoreflect.Message descriptor per type. Reproducing that by hand
would mean fabricating a serialized FileDescriptorProto, which is exactly
the kind of generated artifact this module cannot responsibly hand-write
without running protoc. Instead, this package hand-writes the same
request/response/service-stub shape protoc-gen-go-grpc would produce
(ServiceDesc, MethodDesc/StreamDesc, Unimplemented embeds, Client/Server
interfaces — see kvs_grpc.go) over plain Go structs, and registers a
grpc/encoding.Codec (codec.go) that marshals those structs with
encoding/json under the codec name "proto" — overriding grpc-go's default
codec for every message exchanged on this service's connections. Event's
Timestamp field still uses google.golang.org/protobuf's
timestamppb.Timestamp, the one piece of this contract that benefits from
a real, already-compiled generated message type, the same way the
teacher's api/proto package reaches for timestamppb.New(...) throughout
pkg/api/server.go.

# Usage

	lis, _ := net.Listen("tcp", addr)
	grpcServer := grpc.NewServer()
	kvspb.RegisterKVSServiceServer(grpcServer, myServer)
	grpcServer.Serve(lis)

	conn, _ := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	client := kvspb.NewKVSServiceClient(conn)
	resp, _ := client.Commit(ctx, &kvspb.CommitRequest{...})
*/
package kvspb
