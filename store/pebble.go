package store

import (
	"errors"

	"github.com/cockroachdb/pebble"
)

// Pebble is a durable KV on disk
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble database in dir
func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Pebble{db: db}, nil
}

// Get returns a copy of the value stored under key
func (p *Pebble) Get(key []byte) ([]byte, error) {
	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Has reports whether key exists
func (p *Pebble) Has(key []byte) (bool, error) {
	_, err := p.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// NewBatch starts a write batch that is synced to disk on Commit
func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{b: p.db.NewBatch()}
}

// Close flushes and closes the database
func (p *Pebble) Close() error {
	return p.db.Close()
}

type pebbleBatch struct {
	b *pebble.Batch
}

func (b *pebbleBatch) Put(key, value []byte) error {
	return b.b.Set(key, value, nil)
}

func (b *pebbleBatch) Commit() error {
	defer b.b.Close()
	return b.b.Commit(pebble.Sync)
}
