// Command shardcache-proxy runs the recipe server and the allocator's
// periodic reallocation loop, plus an admin HTTP surface for metrics and
// on-demand reallocation. Flag handling is grounded on the teacher's
// (now superseded) cmd/noisefs flag style: a single -config flag naming a
// YAML file, with process-lifetime concerns (signal-driven shutdown)
// handled the way the teacher's server commands do.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tessellate-io/shardcache/internal/admin"
	"github.com/tessellate-io/shardcache/internal/allocator"
	"github.com/tessellate-io/shardcache/internal/config"
	"github.com/tessellate-io/shardcache/internal/logging"
	"github.com/tessellate-io/shardcache/internal/recipe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shardcache-proxy:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the proxy YAML configuration file")
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
	proxyLog := log.WithComponent("proxy")

	alloc := allocator.New(allocator.Config{
		K:            cfg.Longhair.K,
		M:            cfg.Longhair.M,
		Budget:       cfg.Cache.Capacity,
		Interval:     time.Duration(cfg.Allocator.IntervalMS) * time.Millisecond,
		Decay:        cfg.Allocator.Decay,
		PruneEpsilon: cfg.Allocator.PruneEpsilon,
	}, log.WithComponent("allocator"))

	server, err := recipe.Listen(cfg.ProxyAddr(), alloc, log.WithComponent("recipe"))
	if err != nil {
		return fmt.Errorf("start recipe server: %w", err)
	}
	defer server.Close()

	watcher, err := config.Watch(*configPath, func(reloaded *config.Config) {
		alloc.SetTunables(reloaded.Cache.Capacity, time.Duration(reloaded.Allocator.IntervalMS)*time.Millisecond)
		proxyLog.Info("config reloaded", "cache.capacity", reloaded.Cache.Capacity, "allocator.interval_ms", reloaded.Allocator.IntervalMS)
	})
	if err != nil {
		proxyLog.Warn("config hot-reload disabled", "err", err.Error())
	} else {
		defer watcher.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go alloc.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		proxyLog.Info("recipe server listening", "addr", server.Addr().String())
		errCh <- server.Serve()
	}()

	var adminSrv *admin.Server
	if addr := cfg.AdminAddr(); addr != "" {
		registry := prometheus.NewRegistry()
		admin.NewMetrics(registry)
		adminSrv = admin.New(addr, registry, alloc, log.WithComponent("admin"))
		go func() {
			proxyLog.Info("admin server listening", "addr", addr)
			errCh <- adminSrv.ListenAndServe()
		}()
	}

	select {
	case <-ctx.Done():
		proxyLog.Info("shutting down")
		server.Close()
		if adminSrv != nil {
			adminSrv.Close()
		}
		return nil
	case err := <-errCh:
		return err
	}
}
