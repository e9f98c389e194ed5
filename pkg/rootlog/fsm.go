package rootlog

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
)

// RootState is a namespace's current root pointer.
type RootState struct {
	Ref string `json:"ref"`
	Seq uint64 `json:"seq"`
}

// Command is one Raft log entry. The only op rootlog knows is set_root;
// the envelope mirrors cuemby-warren's FSM command shape so that adding a
// second op later (e.g. namespace creation) doesn't change the wire
// format of the ones that exist today.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// SetRootCommand is the payload of a set_root Command.
type SetRootCommand struct {
	Namespace string `json:"namespace"`
	Ref       string `json:"ref"`
	Seq       uint64 `json:"seq"`
}

// FSM applies committed set_root commands to an in-memory namespace→root
// table. Like kvsd's cache, it is single-writer: Raft only ever calls
// Apply from its own internal apply goroutine, one log entry at a time.
type FSM struct {
	mu    sync.RWMutex
	roots map[string]RootState
}

// NewFSM returns an empty FSM.
func NewFSM() *FSM {
	return &FSM{roots: make(map[string]RootState)}
}

// GetRoot returns namespace's current root, and whether it has ever been
// set.
func (f *FSM) GetRoot(namespace string) (RootState, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.roots[namespace]
	return s, ok
}

// Apply implements raft.FSM.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("rootlog: unmarshal command: %w", err)
	}

	switch cmd.Op {
	case "set_root":
		var sr SetRootCommand
		if err := json.Unmarshal(cmd.Data, &sr); err != nil {
			return fmt.Errorf("rootlog: unmarshal set_root: %w", err)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if cur, ok := f.roots[sr.Namespace]; ok && sr.Seq <= cur.Seq {
			return fmt.Errorf("rootlog: set_root for %q has seq %d, not ahead of current %d", sr.Namespace, sr.Seq, cur.Seq)
		}
		f.roots[sr.Namespace] = RootState{Ref: sr.Ref, Seq: sr.Seq}
		return nil

	default:
		return fmt.Errorf("rootlog: unknown command %q", cmd.Op)
	}
}

// Snapshot implements raft.FSM.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	cp := make(map[string]RootState, len(f.roots))
	for k, v := range f.roots {
		cp[k] = v
	}
	return &snapshot{roots: cp}, nil
}

// Restore implements raft.FSM.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var roots map[string]RootState
	if err := json.NewDecoder(rc).Decode(&roots); err != nil {
		return fmt.Errorf("rootlog: decode snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roots = roots
	return nil
}

type snapshot struct {
	roots map[string]RootState
}

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s.roots); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

func (s *snapshot) Release() {}

// marshalCommand encodes op/payload into the Command envelope's wire
// bytes, ready to pass to raft.Raft.Apply.
func marshalCommand(op string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("rootlog: marshal %s payload: %w", op, err)
	}
	return json.Marshal(Command{Op: op, Data: data})
}
