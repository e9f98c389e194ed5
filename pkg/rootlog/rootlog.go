package rootlog

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config holds the configuration for one RootLog node.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// RootLog is one Raft-replicated node of the namespace root table.
type RootLog struct {
	nodeID   string
	bindAddr string
	dataDir  string

	raft *raft.Raft
	fsm  *FSM
}

// New constructs a RootLog. It does not start Raft; call Bootstrap or
// Join next.
func New(cfg Config) (*RootLog, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("rootlog: create data dir: %w", err)
	}
	return &RootLog{
		nodeID:   cfg.NodeID,
		bindAddr: cfg.BindAddr,
		dataDir:  cfg.DataDir,
		fsm:      NewFSM(),
	}, nil
}

func (r *RootLog) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(r.nodeID)
	// Tuned for a LAN deployment of a handful of nodes, not a WAN
	// cluster: the hashicorp/raft defaults assume the latter.
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

func (r *RootLog) newRaft() (*raft.Raft, *raft.NetworkTransport, error) {
	addr, err := net.ResolveTCPAddr("tcp", r.bindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: resolve bind address: %w", err)
	}
	transport, err := raft.NewTCPTransport(r.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: create transport: %w", err)
	}
	snapshotStore, err := raft.NewFileSnapshotStore(r.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: create snapshot store: %w", err)
	}
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(r.dataDir, "raft-log.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: create log store: %w", err)
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(r.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: create stable store: %w", err)
	}
	rf, err := raft.NewRaft(r.raftConfig(), r.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, nil, fmt.Errorf("rootlog: create raft: %w", err)
	}
	return rf, transport, nil
}

// Bootstrap starts a new single-node cluster with this node as its only
// member.
func (r *RootLog) Bootstrap() error {
	rf, transport, err := r.newRaft()
	if err != nil {
		return err
	}
	r.raft = rf

	cfg := raft.Configuration{
		Servers: []raft.Server{{ID: raft.ServerID(r.nodeID), Address: transport.LocalAddr()}},
	}
	if err := r.raft.BootstrapCluster(cfg).Error(); err != nil {
		return fmt.Errorf("rootlog: bootstrap cluster: %w", err)
	}
	return nil
}

// Join starts Raft on this node without bootstrapping a configuration; the
// cluster leader is expected to AddVoter this node separately (out of
// scope here — the RPC surface for cluster membership changes belongs to
// pkg/rpc, not rootlog).
func (r *RootLog) Join() error {
	rf, _, err := r.newRaft()
	if err != nil {
		return err
	}
	r.raft = rf
	return nil
}

// IsLeader reports whether this node is currently the Raft leader.
func (r *RootLog) IsLeader() bool {
	return r.raft.State() == raft.Leader
}

// LeaderCh returns raft's leadership-transition channel: true when this
// node becomes leader, false when it steps down. Callers should range
// over it for the lifetime of the RootLog to publish leadership events.
func (r *RootLog) LeaderCh() <-chan bool {
	return r.raft.LeaderCh()
}

// GetRoot returns namespace's last checkpointed root as seen by this
// node's local FSM (which may lag the leader briefly on a follower).
func (r *RootLog) GetRoot(namespace string) (RootState, bool) {
	return r.fsm.GetRoot(namespace)
}

// SetRoot proposes and waits for a set_root command to commit. On a node
// that is not the leader it returns an error without proposing anything;
// nothing in kvsd forwards a SYNC commit to the current leader.
func (r *RootLog) SetRoot(namespace, ref string, seq uint64, timeout time.Duration) error {
	if r.raft.State() != raft.Leader {
		return fmt.Errorf("rootlog: not the leader")
	}
	cmd := SetRootCommand{Namespace: namespace, Ref: ref, Seq: seq}
	data, err := marshalCommand("set_root", cmd)
	if err != nil {
		return err
	}
	future := r.raft.Apply(data, timeout)
	if err := future.Error(); err != nil {
		return fmt.Errorf("rootlog: apply: %w", err)
	}
	if res := future.Response(); res != nil {
		if applyErr, ok := res.(error); ok {
			return fmt.Errorf("rootlog: fsm rejected set_root: %w", applyErr)
		}
	}
	return nil
}

// Shutdown stops Raft.
func (r *RootLog) Shutdown() error {
	if r.raft == nil {
		return nil
	}
	return r.raft.Shutdown().Error()
}
