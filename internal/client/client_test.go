package client

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tessellate-io/shardcache/internal/codec"
	"github.com/tessellate-io/shardcache/internal/store"
)

type fakeRecipeSource struct {
	recipes map[string]int
	timeout bool
}

func (f *fakeRecipeSource) RequestRecipe(_ context.Context, key string) (int, bool, error) {
	if f.timeout {
		return 0, false, nil
	}
	return f.recipes[key], true, nil
}

func newHarness(t *testing.T, k, m, r int) (*Client, codec.Codec, []*store.InMemory, *store.InMemory, *fakeRecipeSource) {
	t.Helper()
	c, err := codec.New(k, m)
	require.NoError(t, err)

	cache := store.NewInMemory()
	backends := make([]*store.InMemory, r)
	backendIfaces := make([]store.Backend, r)
	for i := range backends {
		backends[i] = store.NewInMemory()
		backendIfaces[i] = backends[i]
	}
	recipeSrc := &fakeRecipeSource{recipes: map[string]int{}}

	cl, err := New(Config{K: k, M: m, RegionCount: r, RecipeTimeout: 50 * time.Millisecond, FetchTimeout: time.Second},
		c, cache, backendIfaces, recipeSrc, NewStats(), nil)
	require.NoError(t, err)
	return cl, c, backends, cache, recipeSrc
}

func seedBackends(t *testing.T, codecImpl codec.Codec, backends []*store.InMemory, key string, data []byte, r int) {
	t.Helper()
	shards, err := codecImpl.Encode(data)
	require.NoError(t, err)
	for i, shard := range shards {
		backends[i%r].Seed(store.BlockKey(key, i), shard)
	}
}

func TestColdMissThenWarmHit(t *testing.T) {
	cl, codecImpl, backends, cache, recipeSrc := newHarness(t, 4, 2, 6)
	defer cl.Close()

	data := []byte("the payload for obj1")
	seedBackends(t, codecImpl, backends, "obj1", data, 6)

	ctx := context.Background()
	out, err := cl.Read(ctx, "obj1")
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, int64(1), cl.Stats().CacheMisses())

	// Reallocation now assigns c("obj1")=6, the only key seen so far. With
	// c=0 on the read above, accountAndRepair's missing=cachedBlocks-fromCache
	// was 0 and no repair was scheduled, so the cache is still empty — a
	// read needs c>0 against a non-full cache to actually trigger repairs.
	// Run that read, wait for its repairs to land, then confirm a further
	// read is served entirely from cache.
	recipeSrc.recipes["obj1"] = 6
	out2, err := cl.Read(ctx, "obj1")
	require.NoError(t, err)
	require.Equal(t, data, out2)

	require.Eventually(t, func() bool { return cache.Len() > 0 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		out3, readErr := cl.Read(ctx, "obj1")
		return readErr == nil && bytes.Equal(out3, data) && cl.Stats().CacheHits() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestPartialHit(t *testing.T) {
	cl, codecImpl, backends, cache, recipeSrc := newHarness(t, 4, 2, 6)
	defer cl.Close()

	data := []byte("obj2 payload data here")
	shards, err := codecImpl.Encode(data)
	require.NoError(t, err)
	for i, shard := range shards {
		backends[i%6].Seed(store.BlockKey("obj2", i), shard)
	}
	// Pre-populate cache with blocks 0..2 (c=3).
	for i := 0; i < 3; i++ {
		require.NoError(t, cache.Put(context.Background(), store.BlockKey("obj2", i), shards[i]))
	}
	recipeSrc.recipes["obj2"] = 3

	out, err := cl.Read(context.Background(), "obj2")
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, int64(1), cl.Stats().CachePartialHits())
}

func TestBackendToleratesMFailures(t *testing.T) {
	cl, codecImpl, backends, _, _ := newHarness(t, 4, 2, 6)
	defer cl.Close()

	data := []byte("obj3 payload")
	shards, err := codecImpl.Encode(data)
	require.NoError(t, err)
	for i, shard := range shards {
		backends[i%6].Seed(store.BlockKey("obj3", i), shard)
	}
	// Regions 3 and 4 (exactly m=2) fail permanently.
	backends[3].Delete(store.BlockKey("obj3", 3))
	backends[4].Delete(store.BlockKey("obj3", 4))

	out, err := cl.Read(context.Background(), "obj3")
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, int64(1), cl.Stats().CacheMisses())
}

func TestQuorumImpossibleReturnsNil(t *testing.T) {
	cl, codecImpl, backends, _, _ := newHarness(t, 4, 2, 6)
	defer cl.Close()

	data := []byte("obj4 payload")
	shards, err := codecImpl.Encode(data)
	require.NoError(t, err)
	for i, shard := range shards {
		backends[i%6].Seed(store.BlockKey("obj4", i), shard)
	}
	// Regions 2,3,4 fail: 3 > m=2, quorum impossible.
	backends[2].Delete(store.BlockKey("obj4", 2))
	backends[3].Delete(store.BlockKey("obj4", 3))
	backends[4].Delete(store.BlockKey("obj4", 4))

	out, err := cl.Read(context.Background(), "obj4")
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestProxyTimeoutProceedsWithZeroRecipe(t *testing.T) {
	cl, codecImpl, backends, _, recipeSrc := newHarness(t, 4, 2, 6)
	defer cl.Close()
	recipeSrc.timeout = true

	data := []byte("obj5 payload")
	seedBackends(t, codecImpl, backends, "obj5", data, 6)

	done := make(chan struct{})
	go func() {
		out, err := cl.Read(context.Background(), "obj5")
		require.NoError(t, err)
		require.Equal(t, data, out)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("read hung on proxy timeout")
	}
}

func TestEmptyKeyIsCallerError(t *testing.T) {
	cl, _, _, _, _ := newHarness(t, 4, 2, 6)
	defer cl.Close()
	_, err := cl.Read(context.Background(), "")
	require.Error(t, err)
}
