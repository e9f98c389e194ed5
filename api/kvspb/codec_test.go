package kvspb

import (
	"testing"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	c := encoding.GetCodec((jsonCodec{}).Name())
	if c == nil {
		t.Fatalf("codec %q not registered", (jsonCodec{}).Name())
	}

	want := &CommitRequest{
		Namespace: "primary",
		Requestor: "tester",
		Ops: []*Op{
			{Key: "a.b", Dirent: []byte(`{"ver":1}`), Append: true},
		},
		Sync: true,
	}

	data, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := new(CommitRequest)
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Namespace != want.Namespace || got.Requestor != want.Requestor || got.Sync != want.Sync {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Ops) != 1 || got.Ops[0].Key != "a.b" || !got.Ops[0].Append {
		t.Fatalf("round trip ops mismatch: got %+v", got.Ops)
	}
}

func TestEventTimestampRoundTrip(t *testing.T) {
	c := encoding.GetCodec((jsonCodec{}).Name())

	want := &Event{
		Type:      "commit.ok",
		Timestamp: timestamppb.Now(),
		Message:   "commit applied",
		Metadata:  map[string]string{"namespace": "primary"},
	}

	data, err := c.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got := new(Event)
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Timestamp.AsTime() != want.Timestamp.AsTime() {
		t.Fatalf("Timestamp mismatch: got %v, want %v", got.Timestamp.AsTime(), want.Timestamp.AsTime())
	}
	if got.Metadata["namespace"] != "primary" {
		t.Fatalf("Metadata mismatch: got %+v", got.Metadata)
	}
}
