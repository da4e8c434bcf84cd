package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultDashboardTTL = 5 * time.Minute
	pingTimeout         = 3 * time.Second
)

// dial connects and pings; an unreachable redis is reported to the caller,
// which decides whether to run uncached.
func dial(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}

	host, port := cfg.RedisHost, cfg.RedisPort
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func dashboardTTL(cfg config.CacheConfig) time.Duration {
	if cfg.DashboardTTLSeconds <= 0 {
		return defaultDashboardTTL
	}
	return time.Duration(cfg.DashboardTTLSeconds) * time.Second
}

// unlinkPrefix removes every key under prefix, one SCAN page per pipeline,
// and returns how many keys were removed.
func unlinkPrefix(ctx context.Context, client *redis.Client, prefix string, pageSize int64) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", pageSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			pipe := client.Pipeline()
			unlink := pipe.Unlink(ctx, keys...)
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("unlink %d keys: %w", len(keys), err)
			}
			removed += unlink.Val()
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
