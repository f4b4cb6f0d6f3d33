// Package bootstrap assembles a cache stack from config.Config.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/cellarcache"
	"github.com/unkn0wn-root/cellarcache/codec"
	"github.com/unkn0wn-root/cellarcache/config"
	asynchook "github.com/unkn0wn-root/cellarcache/hooks/async"
	zlog "github.com/unkn0wn-root/cellarcache/log/zerolog"
	"github.com/unkn0wn-root/cellarcache/sloghooks"
	"github.com/unkn0wn-root/cellarcache/store"
	"github.com/unkn0wn-root/cellarcache/store/bigcache"
	"github.com/unkn0wn-root/cellarcache/store/memory"
	"github.com/unkn0wn-root/cellarcache/store/redis"
	"github.com/unkn0wn-root/cellarcache/store/ristretto"
	"github.com/unkn0wn-root/cellarcache/store/sqlite"
)

// Stack is a ready cache plus the resources it owns.
type Stack struct {
	Cache *cellarcache.Cache
	Log   zerolog.Logger

	hooks *asynchook.Hooks
}

// Close flushes queued hook events and closes the store.
func (s *Stack) Close(ctx context.Context) error {
	err := s.Cache.Close(ctx)
	s.hooks.Close()
	return err
}

// Logger builds the zerolog logger described by cfg.
func Logger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("CELLAR_CACHE_LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Codec returns the entry codec, bounded to decode at most MaxBytes.
func Codec(cfg config.Config) (codec.Codec, error) {
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	return codec.Limit{Inner: c, MaxDecode: int(cfg.MaxBytes)}, nil
}

// OpenStore opens the backing store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(memory.Config{QuotaBytes: cfg.QuotaBytes}), nil
	case config.StoreSQLite:
		return sqlite.Open(sqlite.Config{Path: cfg.SQLitePath, QuotaBytes: cfg.QuotaBytes})
	case config.StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis store: ping %s: %w", cfg.RedisAddr, err)
		}
		return redis.New(redis.Config{Client: rdb, CloseClient: true})
	case config.StoreBigcache:
		return bigcache.New(bigcache.Config{
			Shards:             cfg.BigcacheShards,
			HardMaxCacheSizeMB: cfg.BigcacheMaxMB,
		})
	case config.StoreRistretto:
		maxCost := int64(cfg.RistrettoCostMB) << 20
		return ristretto.New(ristretto.Config{
			// ~10 counters per expected entry at ~1 KiB per entry
			NumCounters: max(maxCost/1024*10, 1000),
			MaxCost:     maxCost,
			BufferItems: 64,
		})
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Open wires store, codec, logging and hooks into a Cache. Logs go to w.
func Open(ctx context.Context, cfg config.Config, w io.Writer) (*Stack, error) {
	zl, err := Logger(cfg, w)
	if err != nil {
		return nil, err
	}
	cd, err := Codec(cfg)
	if err != nil {
		return nil, err
	}
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hooks := asynchook.New(sloghooks.New(slog.New(slog.NewJSONHandler(w, nil)), sloghooks.Options{
		SelfHealEvery:   10,
		StoreErrorEvery: 1,
	}), 1, 1000)

	opts := cfg.CacheOptions()
	opts.Store = st
	opts.Codec = cd
	opts.Logger = zlog.Logger{L: zl}
	opts.Hooks = hooks

	c, err := cellarcache.New(opts)
	if err != nil {
		hooks.Close()
		_ = st.Close(ctx)
		return nil, err
	}
	zl.Debug().Str("store", cfg.Store).Str("codec", cd.Name()).Str("ns", c.Namespace()).Msg("cache ready")
	return &Stack{Cache: c, Log: zl, hooks: hooks}, nil
}
