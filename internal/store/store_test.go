package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryGetPutRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, ok, err := s.Get(ctx, "obj1"+BlockKey("", 0))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, BlockKey("obj1", 0), []byte("hello")))
	data, ok, err := s.Get(ctx, BlockKey("obj1", 0))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("hello"), data)
}

func TestBlockKeyHasNoDelimiter(t *testing.T) {
	require.Equal(t, "obj15", BlockKey("obj1", 5))
}

func TestBoundedLRUEvictsOldest(t *testing.T) {
	ctx := context.Background()
	underlying := NewInMemory()
	lru := NewBoundedLRU(underlying, 2)

	require.NoError(t, lru.Put(ctx, "a", []byte("1")))
	require.NoError(t, lru.Put(ctx, "b", []byte("2")))
	require.NoError(t, lru.Put(ctx, "c", []byte("3")))

	require.Equal(t, 2, underlying.Len())
	_, ok, _ := underlying.Get(ctx, "a")
	require.False(t, ok, "oldest key should have been evicted")
	_, ok, _ = underlying.Get(ctx, "c")
	require.True(t, ok)
}

func TestFailingBackendAlwaysErrors(t *testing.T) {
	_, ok, err := (Failing{}).Get(context.Background(), "k")
	require.Error(t, err)
	require.False(t, ok)
}
