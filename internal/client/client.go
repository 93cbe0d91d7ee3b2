// Package client implements the parallel block-fetch and reconstruction
// engine: races cache and backend reads, stops at quorum, decodes, and
// schedules background repair. Grounded in shape on the teacher's
// pkg/core/client (Client holding a storage manager/cache/metrics, and
// download.go's "fetch many block-likes, assemble, trim" pattern) but the
// XOR-triple-randomizer reconstruction of the teacher is replaced entirely
// with (k,m)-quorum erasure decode, and early-exit racing plus dual
// cache/backend paths are new — the teacher's download path waits for every
// block, ours stops at the first k.
package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tessellate-io/shardcache/internal/codec"
	"github.com/tessellate-io/shardcache/internal/logging"
	"github.com/tessellate-io/shardcache/internal/store"
	"github.com/tessellate-io/shardcache/internal/workers"
)

// RecipeSource is the proxy RPC collaborator: how many blocks of key are
// expected in cache. ok=false means the proxy was unreachable in time.
type RecipeSource interface {
	RequestRecipe(ctx context.Context, key string) (cachedBlocks int, ok bool, err error)
}

// Origin classifies where a fetched block actually came from.
type Origin int

const (
	OriginCache Origin = iota
	OriginBackend
)

// Config holds the client's tunables.
type Config struct {
	K, M           int
	RegionCount    int           // R; block i is stored in backend region i mod R.
	RecipeTimeout  time.Duration // T1, default 200ms.
	FetchTimeout   time.Duration // T2, default 2s.
	WorkerPoolSize int           // P, executor.threads, default 5.
}

func (c Config) withDefaults() Config {
	if c.RecipeTimeout <= 0 {
		c.RecipeTimeout = 200 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Second
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 5
	}
	if c.RegionCount <= 0 {
		c.RegionCount = c.K + c.M
	}
	return c
}

// Client is the read-path client: cache, k+m backend regions, a codec, a
// proxy recipe RPC, and a shared worker pool for all block fetches and
// repairs across every Read call.
type Client struct {
	cfg      Config
	codec    codec.Codec
	cache    store.Cache
	backends []store.Backend
	recipe   RecipeSource
	pool     *workers.Pool
	stats    *Stats
	log      *logging.Logger
}

// New constructs a Client. backends must have length cfg.RegionCount.
func New(cfg Config, c codec.Codec, cache store.Cache, backends []store.Backend, recipeSource RecipeSource, stats *Stats, log *logging.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if len(backends) != cfg.RegionCount {
		return nil, fmt.Errorf("client: expected %d backend regions, got %d", cfg.RegionCount, len(backends))
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Client{
		cfg:      cfg,
		codec:    c,
		cache:    cache,
		backends: backends,
		recipe:   recipeSource,
		pool:     workers.New(workers.Config{WorkerCount: cfg.WorkerPoolSize}),
		stats:    stats,
		log:      log,
	}, nil
}

// Stats returns the client's injected stats handle.
func (c *Client) Stats() *Stats { return c.stats }

// Close shuts down the client's worker pool.
func (c *Client) Close() { c.pool.Shutdown() }

type blockResult struct {
	index  int
	data   []byte
	origin Origin
	err    error
}

// Read obtains key's object: ask the proxy for a recipe, race k+m block
// fetches to quorum, decode, and schedule background repair. A miss that
// exhausts the quorum returns (nil, nil) — a cache/backend miss is an
// expected outcome, not a Go error; only caller misuse (an empty key)
// returns a non-nil error.
func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("client: key must not be empty")
	}

	total := c.cfg.K + c.cfg.M
	recipeCtx, recipeCancel := context.WithTimeout(ctx, c.cfg.RecipeTimeout)
	cachedBlocks, ok, err := c.recipe.RequestRecipe(recipeCtx, key)
	recipeCancel()
	if err != nil || !ok {
		cachedBlocks = 0
	}

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()

	resultCh := make(chan blockResult, total)
	for i := 0; i < total; i++ {
		index := i
		task := workers.TaskFunc(func(taskCtx context.Context) (interface{}, error) {
			return c.fetchBlock(taskCtx, key, index, cachedBlocks)
		})
		taskCtx, taskCancel := context.WithTimeout(readCtx, c.cfg.FetchTimeout)
		ch := c.pool.Submit(taskCtx, task)
		go func() {
			defer taskCancel()
			res := <-ch
			if br, isBR := res.Value.(blockResult); isBR {
				resultCh <- br
				return
			}
			resultCh <- blockResult{index: index, err: res.Err}
		}()
	}

	successes := make(map[int]blockEnvelope, c.cfg.K)
	failures := 0
	for len(successes) < c.cfg.K && failures <= c.cfg.M {
		br := <-resultCh
		if br.err != nil {
			failures++
			continue
		}
		successes[br.index] = blockEnvelope{data: br.data, origin: br.origin}
	}

	if len(successes) < c.cfg.K {
		cancelRead()
		c.stats.recordMiss()
		return nil, nil
	}
	cancelRead() // quorum reached: best-effort cancel of stragglers.

	blocks := make(map[int][]byte, len(successes))
	for i, env := range successes {
		blocks[i] = env.data
	}
	decoded, err := c.codec.Decode(blocks)
	if err != nil {
		if c.log != nil {
			c.log.Error("decode failed despite quorum", "key", key, "err", err.Error())
		}
		// Should never happen given a true k-quorum, but the accounting
		// invariant (hit+partial_hit+miss == completed reads) is
		// unconditional: a decode failure still completed a read and must
		// still count as one, so it counts as a miss rather than nothing.
		c.stats.recordMiss()
		return nil, nil
	}

	c.accountAndRepair(key, cachedBlocks, successes)
	return decoded, nil
}

type blockEnvelope struct {
	data   []byte
	origin Origin
}

// fetchBlock implements the per-index fetch policy of §4.3 step 2.
func (c *Client) fetchBlock(ctx context.Context, key string, index, cachedBlocks int) (blockResult, error) {
	blockKey := store.BlockKey(key, index)

	if index < cachedBlocks {
		if data, hit, err := c.cache.Get(ctx, blockKey); err == nil && hit {
			return blockResult{index: index, data: data, origin: OriginCache}, nil
		}
	}

	region := index % c.cfg.RegionCount
	data, hit, err := c.backends[region].Get(ctx, blockKey)
	if err != nil || !hit {
		if err == nil {
			err = fmt.Errorf("client: backend miss for block %d", index)
		}
		return blockResult{index: index, err: err}, err
	}
	return blockResult{index: index, data: data, origin: OriginBackend}, nil
}

// accountAndRepair implements §4.3 steps 5-6: exactly one counter is
// incremented, and up to `missing` background repairs are submitted for
// BACKEND-origin blocks with index < cachedBlocks, walking from the
// highest index downward.
func (c *Client) accountAndRepair(key string, cachedBlocks int, used map[int]blockEnvelope) {
	fromCache, fromBackend := 0, 0
	for _, env := range used {
		if env.origin == OriginCache {
			fromCache++
		} else {
			fromBackend++
		}
	}

	switch {
	case fromCache == c.cfg.K:
		c.stats.recordHit()
	case fromCache > 0 && fromBackend > 0:
		c.stats.recordPartialHit()
	default:
		c.stats.recordMiss()
	}

	missing := cachedBlocks - fromCache
	if missing <= 0 {
		return
	}

	indices := make([]int, 0, len(used))
	for i := range used {
		indices = append(indices, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	repaired := 0
	for _, i := range indices {
		if repaired >= missing {
			break
		}
		env := used[i]
		if env.origin != OriginBackend || i >= cachedBlocks {
			continue
		}
		repaired++
		blockKey := store.BlockKey(key, i)
		data := env.data
		c.pool.Submit(context.Background(), workers.TaskFunc(func(ctx context.Context) (interface{}, error) {
			if err := c.cache.Put(ctx, blockKey, data); err != nil && c.log != nil {
				c.log.Debug("repair write failed", "key", blockKey, "err", err.Error())
			}
			return nil, nil
		}))
	}
}

