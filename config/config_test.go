package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/cellarcache"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "cellar", cfg.Namespace)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "json", cfg.Codec)
	assert.EqualValues(t, 5<<20, cfg.MaxBytes)
	assert.Equal(t, 30*time.Second, cfg.PendingMaxAge)
	assert.Zero(t, cfg.PendingSweep)
	assert.Equal(t, cellarcache.DefaultTTLs(), cfg.TTLs())
}

func TestOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CELLAR_CACHE_NAMESPACE":     "wine",
		"CELLAR_CACHE_VERSION":       "2.0.0",
		"CELLAR_CACHE_STORE":         " SQLite ",
		"CELLAR_CACHE_SQLITE_PATH":   "/tmp/c.db",
		"CELLAR_CACHE_TTL_FAVORITES": "120s",
		"CELLAR_CACHE_PENDING_SWEEP": "10s",
		"CELLAR_CACHE_CODEC":         "CBOR",
	})
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "cbor", cfg.Codec)

	opts := cfg.CacheOptions()
	assert.Equal(t, "wine", opts.Namespace)
	assert.Equal(t, "2.0.0", opts.Version)
	assert.Equal(t, 120*time.Second, opts.TTLs[cellarcache.CategoryFavorites])

	co := cfg.CatalogOptions()
	assert.Equal(t, 10*time.Second, co.Coordinator.SweepInterval)
	assert.Equal(t, 30*time.Second, co.Coordinator.MaxAge)
}

func TestInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"store":     {"CELLAR_CACHE_STORE": "etcd"},
		"namespace": {"CELLAR_CACHE_NAMESPACE": "a:b"},
		"max bytes": {"CELLAR_CACHE_MAX_BYTES": "0"},
		"ttl":       {"CELLAR_CACHE_TTL_USER": "0s"},
		"duration":  {"CELLAR_CACHE_DEFAULT_TTL": "soon"},
		"sweep":     {"CELLAR_CACHE_PENDING_SWEEP": "-1s"},
	}
	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}
