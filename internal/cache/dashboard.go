package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	dashboardKeyPrefix = "dashboard:"
	scanBatchSize      = 100
)

// DashboardCache stores JSON-encoded dashboard responses per view and filter.
// The ingest pipeline invalidates everything after each upload.
type DashboardCache interface {
	Get(ctx context.Context, view string, filter any, dest any) (bool, error)
	Set(ctx context.Context, view string, filter any, value any) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

// NewDashboardCache returns a redis-backed cache, or a no-op cache when
// caching is disabled.
func NewDashboardCache(ctx context.Context, cfg config.CacheConfig) (DashboardCache, error) {
	if !cfg.Enabled {
		return &noopDashboardCache{}, nil
	}

	client, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisDashboardCache{
		client: client,
		ttl:    dashboardTTL(cfg),
	}, nil
}

func NewNoopDashboardCache() DashboardCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) Get(ctx context.Context, view string, filter any, dest any) (bool, error) {
	key, err := buildDashboardKey(view, filter)
	if err != nil {
		return false, err
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode %s cache: %w", view, err)
	}
	return true, nil
}

func (c *redisDashboardCache) Set(ctx context.Context, view string, filter any, value any) error {
	key, err := buildDashboardKey(view, filter)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s cache: %w", view, err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	removed, err := unlinkPrefix(ctx, c.client, dashboardKeyPrefix, scanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int64("keys", removed).Msg("Dashboard cache invalidated")
	return nil
}

func (n *noopDashboardCache) Get(ctx context.Context, view string, filter any, dest any) (bool, error) {
	return false, nil
}

func (n *noopDashboardCache) Set(ctx context.Context, view string, filter any, value any) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// buildDashboardKey hashes the JSON form of filter so equal filters share a
// key regardless of how they were built.
func buildDashboardKey(view string, filter any) (string, error) {
	if filter == nil {
		return dashboardKeyPrefix + view + ":default", nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("encode %s cache key: %w", view, err)
	}
	if string(raw) == "{}" || string(raw) == "null" {
		return dashboardKeyPrefix + view + ":default", nil
	}
	hash := sha1.Sum(raw)
	return dashboardKeyPrefix + view + ":" + hex.EncodeToString(hash[:]), nil
}
