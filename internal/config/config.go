// Package config loads the ENUMERATED configuration surface from a YAML
// file with environment-variable overrides, and optionally hot-reloads the
// two tunables that are safe to change at runtime without restarting the
// allocator or client. Grounded in shape on the teacher's
// pkg/common/config.LoadConfig (file-then-env-override loading, struct
// validation) though trimmed drastically from its IPFS/FUSE/WebUI/Tor
// surface down to the keys this specification actually enumerates.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the ENUMERATED configuration keys of the specification's
// external-interfaces section, plus this repo's ambient additions
// (allocator.prune_epsilon, admin.*, log.*).
type Config struct {
	Longhair struct {
		K int `yaml:"k"`
		M int `yaml:"m"`
	} `yaml:"longhair"`

	S3 struct {
		Regions   []string `yaml:"regions"`
		Endpoints []string `yaml:"endpoints"`
		Buckets   []string `yaml:"buckets"`
	} `yaml:"s3"`

	Memcached struct {
		Server string `yaml:"server"`
	} `yaml:"memcached"`

	Executor struct {
		Threads int `yaml:"threads"`
	} `yaml:"executor"`

	Proxy struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"proxy"`

	Cache struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"cache"`

	Allocator struct {
		IntervalMS   int     `yaml:"interval_ms"`
		Decay        float64 `yaml:"decay"`
		PruneEpsilon float64 `yaml:"prune_epsilon"`
	} `yaml:"allocator"`

	Admin struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"admin"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and validates a Config from path, applying SHARDCACHE_*
// environment-variable overrides afterward.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with the specification's stated defaults:
// executor.threads=5, allocator.interval_ms=5000, allocator.decay=1.0.
func Default() *Config {
	cfg := &Config{}
	cfg.Executor.Threads = 5
	cfg.Allocator.IntervalMS = 5000
	cfg.Allocator.Decay = 1.0
	cfg.Allocator.PruneEpsilon = 0.0
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	return cfg
}

// envOverride describes one SHARDCACHE_<KEY> environment variable override.
type envOverride struct {
	name  string
	apply func(cfg *Config, value string) error
}

var envOverrides = []envOverride{
	{"SHARDCACHE_LONGHAIR_K", func(c *Config, v string) error { return setInt(&c.Longhair.K, v) }},
	{"SHARDCACHE_LONGHAIR_M", func(c *Config, v string) error { return setInt(&c.Longhair.M, v) }},
	{"SHARDCACHE_MEMCACHED_SERVER", func(c *Config, v string) error { c.Memcached.Server = v; return nil }},
	{"SHARDCACHE_EXECUTOR_THREADS", func(c *Config, v string) error { return setInt(&c.Executor.Threads, v) }},
	{"SHARDCACHE_PROXY_HOST", func(c *Config, v string) error { c.Proxy.Host = v; return nil }},
	{"SHARDCACHE_PROXY_PORT", func(c *Config, v string) error { return setInt(&c.Proxy.Port, v) }},
	{"SHARDCACHE_CACHE_CAPACITY", func(c *Config, v string) error { return setInt(&c.Cache.Capacity, v) }},
	{"SHARDCACHE_ALLOCATOR_INTERVAL_MS", func(c *Config, v string) error { return setInt(&c.Allocator.IntervalMS, v) }},
	{"SHARDCACHE_ALLOCATOR_DECAY", func(c *Config, v string) error { return setFloat(&c.Allocator.Decay, v) }},
	{"SHARDCACHE_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"SHARDCACHE_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
}

func applyEnvOverrides(cfg *Config) error {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok {
			// Unparseable values are rejected here; parseable but
			// out-of-range values are caught by Validate.
			if err := o.apply(cfg, v); err != nil {
				return fmt.Errorf("%s: %w", o.name, err)
			}
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

// Validate enforces the CONFIG-class invariants named by the specification:
// 0 <= k < 256, 0 <= m <= 256-k, and the s3.* lists must be equal length.
func (c *Config) Validate() error {
	if c.Longhair.K < 0 || c.Longhair.K >= 256 {
		return fmt.Errorf("longhair.k must be in [0,256), got %d", c.Longhair.K)
	}
	if c.Longhair.M < 0 || c.Longhair.M > 256-c.Longhair.K {
		return fmt.Errorf("longhair.m must be in [0,256-k], got %d", c.Longhair.M)
	}
	if len(c.S3.Regions) != 0 {
		n := len(c.S3.Regions)
		if len(c.S3.Endpoints) != n || len(c.S3.Buckets) != n {
			return fmt.Errorf("s3.regions/endpoints/buckets must have equal length")
		}
	}
	if c.Executor.Threads <= 0 {
		return fmt.Errorf("executor.threads must be positive, got %d", c.Executor.Threads)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must be non-negative, got %d", c.Cache.Capacity)
	}
	if c.Allocator.Decay <= 0 || c.Allocator.Decay > 1 {
		return fmt.Errorf("allocator.decay must be in (0,1], got %f", c.Allocator.Decay)
	}
	return nil
}

// ProxyAddr formats proxy.host:proxy.port for the recipe server/client.
func (c *Config) ProxyAddr() string {
	return joinHostPort(c.Proxy.Host, c.Proxy.Port)
}

// AdminAddr formats admin.host:admin.port; empty host means disabled.
func (c *Config) AdminAddr() string {
	if c.Admin.Host == "" {
		return ""
	}
	return joinHostPort(c.Admin.Host, c.Admin.Port)
}

func joinHostPort(host string, port int) string {
	return strings.TrimSuffix(host, ":") + ":" + strconv.Itoa(port)
}
