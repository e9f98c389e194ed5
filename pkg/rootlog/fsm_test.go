package rootlog

import (
	"testing"

	"github.com/hashicorp/raft"
)

func applyLog(t *testing.T, f *FSM, op string, payload interface{}) interface{} {
	t.Helper()
	data, err := marshalCommand(op, payload)
	if err != nil {
		t.Fatalf("marshalCommand: %v", err)
	}
	return f.Apply(&raft.Log{Data: data})
}

func TestSetRootAdvancesSeq(t *testing.T) {
	f := NewFSM()
	if res := applyLog(t, f, "set_root", SetRootCommand{Namespace: "primary", Ref: "sha1-a", Seq: 1}); res != nil {
		t.Fatalf("Apply() = %v, want nil", res)
	}
	state, ok := f.GetRoot("primary")
	if !ok || state.Ref != "sha1-a" || state.Seq != 1 {
		t.Fatalf("GetRoot() = (%+v, %v), want ({sha1-a 1}, true)", state, ok)
	}

	if res := applyLog(t, f, "set_root", SetRootCommand{Namespace: "primary", Ref: "sha1-b", Seq: 2}); res != nil {
		t.Fatalf("Apply() = %v, want nil", res)
	}
	state, _ = f.GetRoot("primary")
	if state.Seq != 2 {
		t.Fatalf("GetRoot().Seq = %d, want 2", state.Seq)
	}
}

func TestSetRootRejectsNonAdvancingSeq(t *testing.T) {
	f := NewFSM()
	applyLog(t, f, "set_root", SetRootCommand{Namespace: "primary", Ref: "sha1-a", Seq: 5})

	res := applyLog(t, f, "set_root", SetRootCommand{Namespace: "primary", Ref: "sha1-stale", Seq: 5})
	if res == nil {
		t.Fatalf("Apply() = nil, want error for non-advancing seq")
	}
	if _, ok := res.(error); !ok {
		t.Fatalf("Apply() = %v (%T), want error", res, res)
	}

	state, _ := f.GetRoot("primary")
	if state.Ref != "sha1-a" {
		t.Errorf("GetRoot().Ref = %q, want unchanged %q", state.Ref, "sha1-a")
	}
}

func TestGetRootUnknownNamespace(t *testing.T) {
	f := NewFSM()
	if _, ok := f.GetRoot("nope"); ok {
		t.Errorf("GetRoot() ok = true for unknown namespace")
	}
}

func TestUnknownCommandRejected(t *testing.T) {
	f := NewFSM()
	res := applyLog(t, f, "delete_root", SetRootCommand{Namespace: "primary"})
	if res == nil {
		t.Fatalf("Apply() = nil, want error for unknown op")
	}
}
