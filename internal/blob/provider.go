// Package blob defines the durable byte-slot abstraction that holds the
// serialized database image.
package blob

import "errors"

// ErrKeyNotFound is returned by Get when no value has been stored yet.
var ErrKeyNotFound = errors.New("blob: key not found")

// Provider is the interface for durable single-value storage. The store
// keeps the whole database image under one fixed key and overwrites it
// wholesale after every mutation.
type Provider interface {
	// Get returns the bytes stored under key, or ErrKeyNotFound.
	Get(key string) ([]byte, error)
	// Put atomically overwrites the value stored under key.
	Put(key string, data []byte) error
}
