package app

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	return AppConfig{
		Secret:       "secret",
		Port:         8080,
		LogLevel:     "INFO",
		Store:        StoreMemory,
		MaxSessions:  10,
		TickInterval: 250 * time.Millisecond,
		ReapInterval: time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "no secret", mutate: func(c *AppConfig) { c.Secret = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *AppConfig) { c.Port = 0 }, wantErr: true},
		{name: "unknown store", mutate: func(c *AppConfig) { c.Store = "etcd" }, wantErr: true},
		{name: "sqlite without path", mutate: func(c *AppConfig) { c.Store = StoreSQLite }, wantErr: true},
		{name: "no sessions", mutate: func(c *AppConfig) { c.MaxSessions = 0 }, wantErr: true},
		{name: "slow tick", mutate: func(c *AppConfig) { c.TickInterval = 2 * time.Second }, wantErr: true},
		{name: "negative preview width", mutate: func(c *AppConfig) { c.PreviewWidth = -1 }, wantErr: true},
		{
			name: "lease outlives reaper",
			mutate: func(c *AppConfig) {
				c.Store = StoreRedis
				c.LeaseTTL = 30 * time.Second
			},
			wantErr: true,
		},
		{
			name: "memory store ignores lease ttl",
			mutate: func(c *AppConfig) { c.LeaseTTL = 30 * time.Second },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	stores := map[string]func(*AppConfig){
		StoreMemory: func(*AppConfig) {},
		StoreSQLite: func(c *AppConfig) { c.SQLitePath = filepath.Join(t.TempDir(), "library.db") },
		StoreRedis: func(c *AppConfig) {
			c.RedisHost = mr.Host()
			c.RedisPort = mustPort(t, mr.Port())
		},
	}

	for store, configure := range stores {
		t.Run(store, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store = store
			configure(&cfg)

			backend, err := openBackend(ctx, &cfg)
			require.NoError(t, err)
			defer backend.Close()

			h, err := backend.Acquire(ctx, "profile:alice")
			require.NoError(t, err)
			require.NoError(t, h.Set(ctx, "bookmarks", []string{`{"media_id":"a"}`}))

			got, err := h.Get(ctx, "bookmarks")
			require.NoError(t, err)
			assert.Equal(t, []string{`{"media_id":"a"}`}, got)
			require.NoError(t, h.Release(ctx))
		})
	}
}

func TestOpenBackendRedisUnavailable(t *testing.T) {
	cfg := validConfig()
	cfg.Store = StoreRedis
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = 1

	_, err := openBackend(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("debug")
	assert.NoError(t, err)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestAuxiliaryFactoryWithoutFFmpeg(t *testing.T) {
	logger, err := newLogger("error")
	require.NoError(t, err)

	assert.Nil(t, auxiliaryFactory("", logger))
	assert.Nil(t, auxiliaryFactory("/nonexistent/ffmpeg", logger))
}

func mustPort(t *testing.T, port string) int {
	t.Helper()

	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}
