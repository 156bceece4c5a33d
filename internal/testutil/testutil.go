// Package testutil provides shared test helpers for setting up stores
// over throwaway in-memory persistence.
package testutil

import (
	"testing"

	"github.com/starford/ansuz/internal/blob"
	"github.com/starford/ansuz/internal/engine"
	"github.com/starford/ansuz/internal/store"
)

// TestStore creates a store over a fresh in-memory engine and blob slot,
// torn down with the test.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	st, _ := TestStoreWithBlob(t)
	return st
}

// TestStoreWithBlob additionally exposes the memory blob provider so tests
// can inspect or fail the persistence layer.
func TestStoreWithBlob(t *testing.T) (*store.Store, *blob.Memory) {
	t.Helper()
	mem := blob.NewMemory()
	sess := engine.New(mem)
	t.Cleanup(func() { _ = sess.Close() })
	return store.New(sess), mem
}
