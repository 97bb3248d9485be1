package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/costbook/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	defaultAnalyticsTTL = 5 * time.Minute
	scanBatchSize       = 100
	pingTimeout         = 5 * time.Second
)

// connectRedis opens a client for cfg and fails fast when the server does not
// answer a ping.
func connectRedis(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("analytics cache at %s unreachable: %w", opts.Addr, err)
	}
	return client, nil
}

// buildRedisOptions prefers REDIS_URL and otherwise assembles the address
// from host and port, defaulting to a local server.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
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

func analyticsTTL(cfg config.CacheConfig) time.Duration {
	if cfg.AnalyticsTTLSeconds <= 0 {
		return defaultAnalyticsTTL
	}
	return time.Duration(cfg.AnalyticsTTLSeconds) * time.Second
}
