package content

import (
	"context"
	"errors"

	"github.com/cuemby/kvsd/pkg/blobref"
)

// ErrNotFound is returned by Load when blobref is not present in the
// store.
var ErrNotFound = errors.New("content: blob not found")

// Store is the content-store contract kvsd's core treats as an opaque
// collaborator (spec.md §6.1). Implementations must make Store
// idempotent: storing the same bytes twice returns the same blobref
// without error.
type Store interface {
	// Store persists b and returns its blobref.
	Store(ctx context.Context, b []byte) (blobref.Blobref, error)

	// Load returns the bytes previously stored under ref, or ErrNotFound.
	Load(ctx context.Context, ref blobref.Blobref) ([]byte, error)

	// Flush blocks until every blob accepted by Store has been persisted
	// to the backing store.
	Flush(ctx context.Context) error

	// Algorithm returns the hash algorithm token this store uses when
	// computing blobrefs for newly stored blobs.
	Algorithm() string
}
