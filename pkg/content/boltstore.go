package content

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cuemby/kvsd/pkg/blobref"
	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// BoltStore implements Store using a single go.etcd.io/bbolt database,
// keyed by the raw blobref string. Grounded on the teacher's
// pkg/storage.BoltStore: one bucket, JSON-free binary values, an
// Update/View closure per call.
type BoltStore struct {
	db   *bolt.DB
	algo string
}

// NewBoltStore opens (creating if necessary) a bbolt database at
// <dataDir>/content.db, hashing newly stored blobs with algo.
func NewBoltStore(dataDir, algo string) (*BoltStore, error) {
	if algo == "" {
		algo = blobref.SHA1
	}
	dbPath := filepath.Join(dataDir, "content.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("content: open database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("content: create bucket: %w", err)
	}
	return &BoltStore{db: db, algo: algo}, nil
}

// Algorithm implements Store.
func (s *BoltStore) Algorithm() string { return s.algo }

// Store implements Store. Storing identical bytes twice is a no-op that
// returns the same blobref both times, satisfying Store's idempotence
// contract.
func (s *BoltStore) Store(ctx context.Context, b []byte) (blobref.Blobref, error) {
	ref, err := blobref.Hash(s.algo, b)
	if err != nil {
		return "", fmt.Errorf("content: hash blob: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketBlobs)
		key := []byte(ref)
		if existing := bkt.Get(key); existing != nil {
			return nil
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return bkt.Put(key, cp)
	})
	if err != nil {
		return "", fmt.Errorf("content: store blob %s: %w", ref, err)
	}
	return ref, nil
}

// Load implements Store.
func (s *BoltStore) Load(ctx context.Context, ref blobref.Blobref) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(ref))
		if v == nil {
			return ErrNotFound
		}
		out = make([]byte, len(v))
		copy(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Flush implements Store. bbolt fsyncs the backing file on every
// committed write transaction, so there is no extra I/O to perform here;
// Flush exists as an explicit barrier so callers waiting on
// spec.md §4.4.2's SYNC_CONTENT_FLUSH stall have something to await, and
// so a future non-durable-by-default backing store has a real hook.
func (s *BoltStore) Flush(ctx context.Context) error {
	return s.db.Sync()
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
