package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := FromViper(newViper())
	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.Debug())
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "data/portal.db", cfg.Store.SQLitePath)
	assert.Equal(t, "memory", cfg.BusBackend)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, "GHS", cfg.Currency)
	assert.Zero(t, cfg.DedupWindow)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("STORE_REDIS_PREFIX", "portal:")
	t.Setenv("BUS_BACKEND", "redis")
	t.Setenv("ATTENDANCE_DEDUP_WINDOW", "90s")
	t.Setenv("LOGIN_RATE_LIMIT_PER_MIN", "3")

	cfg := FromViper(newViper())
	assert.False(t, cfg.Debug())
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "portal:", cfg.Store.RedisPrefix)
	assert.Equal(t, "redis", cfg.BusBackend)
	assert.Equal(t, 90*time.Second, cfg.DedupWindow)
	assert.Equal(t, 3, cfg.LoginRateLimitPerMin)
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("currency", "USD")
	v.Set("access_ttl", "1m")
	cfg := FromViper(v)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, time.Minute, cfg.AccessTTL)
	assert.Empty(t, cfg.Store.Backend)
}
