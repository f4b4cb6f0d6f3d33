// Package config loads cache settings from CELLAR_CACHE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/unkn0wn-root/cellarcache"
	"github.com/unkn0wn-root/cellarcache/catalog"
	"github.com/unkn0wn-root/cellarcache/optimistic"
)

// Store kinds accepted by CELLAR_CACHE_STORE.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StoreRedis     = "redis"
	StoreBigcache  = "bigcache"
	StoreRistretto = "ristretto"
)

// Config holds every tunable of the cache stack.
type Config struct {
	Namespace  string        `env:"CELLAR_CACHE_NAMESPACE"   envDefault:"cellar"`
	Version    string        `env:"CELLAR_CACHE_VERSION"`
	MaxBytes   int64         `env:"CELLAR_CACHE_MAX_BYTES"   envDefault:"5242880"`
	DefaultTTL time.Duration `env:"CELLAR_CACHE_DEFAULT_TTL" envDefault:"5m"`

	TTLCards     time.Duration `env:"CELLAR_CACHE_TTL_CARDS"     envDefault:"5m"`
	TTLCard      time.Duration `env:"CELLAR_CACHE_TTL_CARD"      envDefault:"10m"`
	TTLFavorites time.Duration `env:"CELLAR_CACHE_TTL_FAVORITES" envDefault:"2m"`
	TTLUser      time.Duration `env:"CELLAR_CACHE_TTL_USER"      envDefault:"1h"`
	TTLComments  time.Duration `env:"CELLAR_CACHE_TTL_COMMENTS"  envDefault:"5m"`

	Store      string `env:"CELLAR_CACHE_STORE"       envDefault:"memory"`
	QuotaBytes int64  `env:"CELLAR_CACHE_QUOTA_BYTES"` // store-level quota (memory, sqlite); 0 = none
	Codec      string `env:"CELLAR_CACHE_CODEC"       envDefault:"json"`

	SQLitePath string `env:"CELLAR_CACHE_SQLITE_PATH" envDefault:"cellar-cache.db"`

	RedisAddr     string `env:"CELLAR_CACHE_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"CELLAR_CACHE_REDIS_PASSWORD"`
	RedisDB       int    `env:"CELLAR_CACHE_REDIS_DB"`

	BigcacheShards  int `env:"CELLAR_CACHE_BIGCACHE_SHARDS"   envDefault:"64"`
	BigcacheMaxMB   int `env:"CELLAR_CACHE_BIGCACHE_MAX_MB"   envDefault:"16"`
	RistrettoCostMB int `env:"CELLAR_CACHE_RISTRETTO_COST_MB" envDefault:"16"`

	PendingMaxAge     time.Duration `env:"CELLAR_CACHE_PENDING_MAX_AGE"      envDefault:"30s"`
	PendingSweep      time.Duration `env:"CELLAR_CACHE_PENDING_SWEEP"`
	RevalidateTimeout time.Duration `env:"CELLAR_CACHE_REVALIDATE_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"CELLAR_CACHE_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"CELLAR_CACHE_LOG_FORMAT" envDefault:"json"` // json|console
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.Codec = strings.ToLower(strings.TrimSpace(cfg.Codec))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StoreRedis, StoreBigcache, StoreRistretto:
	default:
		return fmt.Errorf("CELLAR_CACHE_STORE: unknown store %q", c.Store)
	}
	if strings.Contains(c.Namespace, ":") {
		return fmt.Errorf("CELLAR_CACHE_NAMESPACE must not contain ':', got %q", c.Namespace)
	}
	if c.MaxBytes <= 0 {
		return fmt.Errorf("CELLAR_CACHE_MAX_BYTES must be positive, got %d", c.MaxBytes)
	}
	if c.QuotaBytes < 0 {
		return fmt.Errorf("CELLAR_CACHE_QUOTA_BYTES must not be negative, got %d", c.QuotaBytes)
	}
	for name, d := range map[string]time.Duration{
		"CELLAR_CACHE_DEFAULT_TTL":        c.DefaultTTL,
		"CELLAR_CACHE_TTL_CARDS":          c.TTLCards,
		"CELLAR_CACHE_TTL_CARD":           c.TTLCard,
		"CELLAR_CACHE_TTL_FAVORITES":      c.TTLFavorites,
		"CELLAR_CACHE_TTL_USER":           c.TTLUser,
		"CELLAR_CACHE_TTL_COMMENTS":       c.TTLComments,
		"CELLAR_CACHE_PENDING_MAX_AGE":    c.PendingMaxAge,
		"CELLAR_CACHE_REVALIDATE_TIMEOUT": c.RevalidateTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.PendingSweep < 0 {
		return fmt.Errorf("CELLAR_CACHE_PENDING_SWEEP must not be negative, got %s", c.PendingSweep)
	}
	return nil
}

// TTLs returns the per-category TTL table.
func (c Config) TTLs() map[string]time.Duration {
	return map[string]time.Duration{
		cellarcache.CategoryCards:     c.TTLCards,
		cellarcache.CategoryCard:      c.TTLCard,
		cellarcache.CategoryFavorites: c.TTLFavorites,
		cellarcache.CategoryUser:      c.TTLUser,
		cellarcache.CategoryComments:  c.TTLComments,
	}
}

// CacheOptions maps the config onto cellarcache.Options. Store, Codec,
// Logger and Hooks are left for the caller to fill in.
func (c Config) CacheOptions() cellarcache.Options {
	return cellarcache.Options{
		Namespace:  c.Namespace,
		Version:    c.Version,
		DefaultTTL: c.DefaultTTL,
		TTLs:       c.TTLs(),
		MaxSize:    c.MaxBytes,
	}
}

func (c Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		Coordinator: optimistic.Options{
			MaxAge:        c.PendingMaxAge,
			SweepInterval: c.PendingSweep,
		},
		RevalidateTimeout: c.RevalidateTimeout,
	}
}
