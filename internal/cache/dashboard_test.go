package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDashboardKey(t *testing.T) {
	key, err := buildDashboardKey("sales_summary", nil)
	require.NoError(t, err)
	assert.Equal(t, "dashboard:sales_summary:default", key)

	key, err = buildDashboardKey("sales_summary", &domain.DashboardFilter{})
	require.NoError(t, err)
	assert.Equal(t, "dashboard:sales_summary:default", key)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := buildDashboardKey("sales_summary", &domain.DashboardFilter{StartDate: &start})
	require.NoError(t, err)
	b, err := buildDashboardKey("sales_summary", &domain.DashboardFilter{StartDate: &start})
	require.NoError(t, err)
	c, err := buildDashboardKey("alerts", &domain.DashboardFilter{StartDate: &start})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, dashboardKeyPrefix+"sales_summary:"))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewDashboardCache(context.Background(), config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "v", nil, 1))
	var out int
	hit, err := c.Get(ctx, "v", nil, &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = redisOptions(config.CacheConfig{RedisURL: "redis://:secret@example:6379/3"})
	require.NoError(t, err)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = redisOptions(config.CacheConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}

func TestDashboardTTL(t *testing.T) {
	assert.Equal(t, defaultDashboardTTL, dashboardTTL(config.CacheConfig{}))
	assert.Equal(t, 30*time.Second, dashboardTTL(config.CacheConfig{DashboardTTLSeconds: 30}))
}
