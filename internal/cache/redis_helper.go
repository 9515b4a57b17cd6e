package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultCacheTTL  = 5 * time.Minute
	redisConnectWait = 5 * time.Second
	redisCommandWait = 2 * time.Second
	defaultRedisHost = "127.0.0.1"
	defaultRedisPort = "6379"
)

// newRedisClient connects and pings once.
func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectWait)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, 0, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	ttl := cfg.AnalysisTTL()
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Dur("ttl", ttl).Msg("accuracy cache connected")
	return client, ttl, nil
}

// buildRedisOptions prefers REDIS_URL; otherwise host, port, password and
// db are used individually.
func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		host := cfg.RedisHost
		if host == "" {
			host = defaultRedisHost
		}
		port := cfg.RedisPort
		if port == "" {
			port = defaultRedisPort
		}
		opts = &redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	// Short command timeouts: a miss only costs a recomputation.
	opts.DialTimeout = redisConnectWait
	opts.ReadTimeout = redisCommandWait
	opts.WriteTimeout = redisCommandWait
	return opts, nil
}

// unlinkByPrefix removes every key under prefix in SCAN-sized batches and
// returns how many keys were removed.
func unlinkByPrefix(ctx context.Context, client *redis.Client, prefix string, batchSize int64) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := prefix + "*"
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, batchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			n, err := client.Unlink(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("unlink %d keys: %w", len(keys), err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
