package content

import (
	"context"
	"testing"
)

func TestMemStoreIdempotentStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore("")

	r1, err := s.Store(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	r2, err := s.Store(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if r1 != r2 {
		t.Errorf("Store() not idempotent: %q != %q", r1, r2)
	}

	got, err := s.Load(ctx, r1)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("Load() = %q, want %q", got, "payload")
	}
}

func TestMemStoreLoadMissing(t *testing.T) {
	s := NewMemStore("")
	if _, err := s.Load(context.Background(), "sha1-deadbeef"); err != ErrNotFound {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}
