package kvspb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec implements grpc/encoding.Codec over encoding/json instead of
// the protobuf wire format, since the messages in this package are plain
// structs rather than protoc-generated proto.Message values. Registering
// it under the name "proto" replaces grpc-go's default codec process-
// wide for any connection that does not request a different subtype,
// which is exactly what KVSService's client and server stubs rely on.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
