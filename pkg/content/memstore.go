package content

import (
	"context"
	"sync"

	"github.com/cuemby/kvsd/pkg/blobref"
)

// MemStore is an in-memory Store with no durability across restarts. In
// this repository only tests use it; kvsd run opens a BoltStore for every
// namespace.
type MemStore struct {
	mu     sync.RWMutex
	blobs  map[blobref.Blobref][]byte
	algo   string
	Stores int // count of Store calls, for test assertions
}

// NewMemStore returns an empty in-memory store hashing with algo.
func NewMemStore(algo string) *MemStore {
	if algo == "" {
		algo = blobref.SHA1
	}
	return &MemStore{blobs: make(map[blobref.Blobref][]byte), algo: algo}
}

func (s *MemStore) Algorithm() string { return s.algo }

func (s *MemStore) Store(ctx context.Context, b []byte) (blobref.Blobref, error) {
	ref, err := blobref.Hash(s.algo, b)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stores++
	if _, ok := s.blobs[ref]; !ok {
		cp := make([]byte, len(b))
		copy(cp, b)
		s.blobs[ref] = cp
	}
	return ref, nil
}

func (s *MemStore) Load(ctx context.Context, ref blobref.Blobref) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *MemStore) Flush(ctx context.Context) error { return nil }

// Has reports whether ref is present, without counting as a Store call.
func (s *MemStore) Has(ref blobref.Blobref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[ref]
	return ok
}
