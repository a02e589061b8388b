// Package storage provides the key-value stores behind the client's local
// state.
package storage

import "errors"

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// DB is a flat key-value store.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Close() error
}

// Scanner is implemented by stores that can walk keys in lexical order.
type Scanner interface {
	// ForEach visits every key with the given prefix. fn receives copies.
	// A non-nil error from fn stops the walk and is returned.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
}

// Batch collects writes that become visible together on Commit. Discard
// drops them; it is a no-op after Commit.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Discard()
}

// Batcher is implemented by stores that can commit atomically.
type Batcher interface {
	NewBatch() Batch
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
