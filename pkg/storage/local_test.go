package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "76561/20260101_120000/scan.json", []byte(`{"a":1}`)))
	require.NoError(t, store.Put(ctx, "76561/20260101_120000/gephi/nodes.csv", []byte("Id\n")))
	require.NoError(t, store.Put(ctx, "76561/20260102_080000/scan.json", []byte(`{}`)))
	require.NoError(t, store.Put(ctx, "76561/20260101_120000/scan.json", []byte(`{"a":2}`)))

	data, err := store.Get(ctx, "76561/20260101_120000/scan.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	keys, err := store.List(ctx, "76561")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"76561/20260101_120000/gephi/nodes.csv",
		"76561/20260101_120000/scan.json",
		"76561/20260102_080000/scan.json",
	}, keys)
}

func TestLocalStoreMissing(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	_, err := store.Get(ctx, "nope/scan.json")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := store.List(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestOpenPicksBackend(t *testing.T) {
	store, err := Open(context.Background(), "outputs", S3Options{})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = Open(context.Background(), "s3://", S3Options{})
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c.json", Join("a", "b/", "c.json"))
	assert.Equal(t, "b", Join("", "b"))
	assert.Equal(t, "x/y", Join("/x", "y"))
}
