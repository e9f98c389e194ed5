package client

import (
	"testing"

	"github.com/cuemby/kvsd/pkg/treeobj"
)

func TestEncodeOpsUnlinkAndWrite(t *testing.T) {
	ops := []Op{
		{Key: "a.b", Dirent: treeobj.CreateVal([]byte("v"))},
		{Key: "a.c", Dirent: nil},
		{Key: "a.d", Dirent: treeobj.CreateVal([]byte("append-me")), Append: true},
	}

	wire, err := encodeOps(ops)
	if err != nil {
		t.Fatalf("encodeOps() error = %v", err)
	}
	if len(wire) != 3 {
		t.Fatalf("len(wire) = %d, want 3", len(wire))
	}
	if len(wire[0].Dirent) == 0 {
		t.Fatalf("wire[0].Dirent is empty, want encoded treeobj")
	}
	if len(wire[1].Dirent) != 0 {
		t.Fatalf("wire[1].Dirent = %q, want empty (unlink)", wire[1].Dirent)
	}
	if !wire[2].Append {
		t.Fatalf("wire[2].Append = false, want true")
	}
}
