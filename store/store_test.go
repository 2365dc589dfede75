package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	_, err := kv.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := kv.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	b := kv.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))

	// nothing is visible before commit
	ok, err = kv.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Commit())

	v, err := kv.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = kv.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	b = kv.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte("3")))
	require.NoError(t, b.Commit())

	v, err = kv.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
}

func TestMemory(t *testing.T) {
	kv := NewMemory()
	defer kv.Close()

	exerciseKV(t, kv)
	assert.Equal(t, 2, kv.Len())
}

func TestPebble(t *testing.T) {
	dir := t.TempDir()
	kv, err := OpenPebble(dir)
	require.NoError(t, err)

	exerciseKV(t, kv)
	require.NoError(t, kv.Close())

	// state survives a reopen
	kv, err = OpenPebble(dir)
	require.NoError(t, err)
	defer kv.Close()

	v, err := kv.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}
