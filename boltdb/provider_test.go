package boltdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/internal/providertest"
)

func openTemp(t *testing.T) (*Provider, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.bbolt")
	p, err := Open(path, Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, path
}

func TestProvider_Contract(t *testing.T) {
	providertest.Run(t, func(t *testing.T) tempstore.Provider {
		p, _ := openTemp(t)
		return p
	})
}

func TestReopen_DeleteIsDurable(t *testing.T) {
	p, path := openTemp(t)
	when := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Set("a", when, nil))
	require.NoError(t, p.Set("b", "gone", nil))
	require.NoError(t, p.Delete("b"))
	require.NoError(t, p.Close())

	again, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = again.Close() })

	e, ok, err := again.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, when.Equal(e.Value.(time.Time)))

	keys, err := again.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, keys)
}

func TestUnreadableEntryDecodesToNil(t *testing.T) {
	p, _ := openTemp(t)
	require.NoError(t, p.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(p.bucket).Put([]byte("junk"), []byte("not json"))
	}))

	e, ok, err := p.Get("junk")
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, e.Value)
	require.Nil(t, e.Option)
}

func TestBucketsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bbolt")
	p, err := Open(path, Options{Bucket: "one"})
	require.NoError(t, err)
	require.NoError(t, p.Set("k", 1, nil))
	require.NoError(t, p.Close())

	other, err := Open(path, Options{Bucket: "two"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	_, ok, err := other.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClosed(t *testing.T) {
	p, _ := openTemp(t)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.ErrorIs(t, p.Set("k", 1, nil), ErrClosed)
	_, err := p.Values()
	require.ErrorIs(t, err, ErrClosed)
}
