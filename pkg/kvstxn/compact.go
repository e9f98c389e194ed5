package kvstxn

import "github.com/cuemby/kvsd/pkg/treeobj"

// CompactOps drops ops that can have no visible effect because a later
// plain (non-append) op overwrites the same key with nothing appended in
// between. It is a conservative, opt-in helper a caller may run on a
// batch of ops before constructing a Txn; skipping it never changes
// correctness, only how much redundant work STORE does.
func CompactOps(ops []Op) []Op {
	keep := make([]bool, len(ops))
	for i := range keep {
		keep[i] = true
	}
	lastPlain := make(map[string]int)
	for i, op := range ops {
		key, err := treeobj.NormalizeKey(op.Key)
		if err != nil {
			continue
		}
		if op.Flags&OpAppend != 0 {
			delete(lastPlain, key)
			continue
		}
		if prev, ok := lastPlain[key]; ok {
			keep[prev] = false
		}
		lastPlain[key] = i
	}
	out := make([]Op, 0, len(ops))
	for i, op := range ops {
		if keep[i] {
			out = append(out, op)
		}
	}
	return out
}
