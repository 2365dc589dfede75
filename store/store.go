// Package store persists exchange state in a key/value database. Writes are
// grouped in batches so one exchange operation lands atomically or not at
// all.
package store

import "errors"

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("not found")

// KV is the key/value database the exchange state lives in
type KV interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	NewBatch() Batch
	Close() error
}

// Batch collects writes that are applied together on Commit
type Batch interface {
	Put(key, value []byte) error
	Commit() error
}
