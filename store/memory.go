package store

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Memory is a KV held in process memory
type Memory struct {
	db *memorydb.Database
}

// NewMemory creates an empty in-memory KV
func NewMemory() *Memory {
	return &Memory{db: memorydb.New()}
}

// Get returns the value stored under key
func (m *Memory) Get(key []byte) ([]byte, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return m.db.Get(key)
}

// Has reports whether key exists
func (m *Memory) Has(key []byte) (bool, error) {
	return m.db.Has(key)
}

// NewBatch starts a write batch
func (m *Memory) NewBatch() Batch {
	return &memoryBatch{b: m.db.NewBatch()}
}

// Len returns the number of stored keys
func (m *Memory) Len() int {
	return m.db.Len()
}

// Close releases the database
func (m *Memory) Close() error {
	return m.db.Close()
}

type memoryBatch struct {
	b ethdb.Batch
}

func (b *memoryBatch) Put(key, value []byte) error {
	return b.b.Put(key, value)
}

func (b *memoryBatch) Commit() error {
	return b.b.Write()
}
