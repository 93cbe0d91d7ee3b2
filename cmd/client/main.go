// Command shardcache-client drives the read-path engine against a
// scripted workload of keys, one per line, for manual and integration
// testing. It is also meant to be embedded: NewClientFromConfig below is
// the same constructor a workload driver would call to get an
// init -> read* -> cleanup lifecycle without going through a CLI at all.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tessellate-io/shardcache/internal/client"
	"github.com/tessellate-io/shardcache/internal/codec"
	"github.com/tessellate-io/shardcache/internal/config"
	"github.com/tessellate-io/shardcache/internal/logging"
	"github.com/tessellate-io/shardcache/internal/recipe"
	"github.com/tessellate-io/shardcache/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shardcache-client:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the client YAML configuration file")
	workloadPath := flag.String("workload", "", "path to a newline-delimited file of keys to read; defaults to stdin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Sync()

	cl, recipeClient, err := NewClientFromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}
	defer cl.Close()
	defer recipeClient.Close()

	in := os.Stdin
	if *workloadPath != "" {
		f, err := os.Open(*workloadPath)
		if err != nil {
			return fmt.Errorf("open workload: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if key == "" {
			continue
		}
		data, err := cl.Read(ctx, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %q: %v\n", key, err)
			continue
		}
		if data == nil {
			fmt.Printf("%s MISS\n", key)
			continue
		}
		fmt.Printf("%s %d bytes\n", key, len(data))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan workload: %w", err)
	}

	stats := cl.Stats()
	fmt.Fprintf(os.Stderr, "hits=%d partial=%d misses=%d total=%d\n",
		stats.CacheHits(), stats.CachePartialHits(), stats.CacheMisses(), stats.Total())
	return nil
}

// NewClientFromConfig builds a ready-to-use client.Client and its
// underlying recipe.Client (which the caller must Close alongside the
// client itself) from a loaded Config. This is the single construction
// path shared by the CLI above and by any embedding workload driver.
func NewClientFromConfig(cfg *config.Config, log *logging.Logger) (*client.Client, *recipe.Client, error) {
	c, err := codec.New(cfg.Longhair.K, cfg.Longhair.M)
	if err != nil {
		return nil, nil, fmt.Errorf("build codec: %w", err)
	}

	var cache store.Cache
	if cfg.Memcached.Server != "" {
		cache = store.NewMemcachedCache(cfg.Memcached.Server)
	} else {
		cache = store.NewInMemory()
	}

	if len(cfg.S3.Endpoints) == 0 {
		return nil, nil, fmt.Errorf("no s3.endpoints configured")
	}
	backends := make([]store.Backend, len(cfg.S3.Endpoints))
	for i, endpoint := range cfg.S3.Endpoints {
		backends[i] = store.NewHTTPBackend(endpoint)
	}

	recipeClient, err := recipe.Dial(cfg.ProxyAddr())
	if err != nil {
		return nil, nil, fmt.Errorf("dial proxy: %w", err)
	}

	cl, err := client.New(client.Config{
		K:              cfg.Longhair.K,
		M:              cfg.Longhair.M,
		RegionCount:    len(backends),
		WorkerPoolSize: cfg.Executor.Threads,
	}, c, cache, backends, recipeClient, client.NewStats(), log.WithComponent("client"))
	if err != nil {
		recipeClient.Close()
		return nil, nil, fmt.Errorf("build client: %w", err)
	}
	return cl, recipeClient, nil
}
