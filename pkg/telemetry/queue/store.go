// Package queue provides a bounded, time-limited, durable buffer for
// events that cannot be delivered immediately (offline support).
package queue

import "errors"

// Store is the durable key-value backing for a queue. The queue
// serializes its whole state under a single configurable key, the way
// a browser build would use localStorage.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Load retrieves the bytes under a key.
	// Returns ErrNotFound if the key doesn't exist.
	Load(key string) ([]byte, error)

	// Save stores bytes under a key, overwriting any previous value.
	Save(key string, data []byte) error

	// Delete removes a key. Returns nil if the key doesn't exist.
	Delete(key string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the key doesn't exist.
	ErrNotFound = errors.New("queue: key not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("queue: store closed")
)
