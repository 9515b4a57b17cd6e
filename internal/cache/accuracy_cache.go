package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	accuracyAnalysisKeyPrefix = "accuracy:analysis"
	accuracyScanBatchSize     = 100
)

// AccuracyCache stores rendered accuracy reports. Reports depend on
// forecasts, so every forecast append or delete invalidates the whole cache.
type AccuracyCache interface {
	GetAnalysis(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, bool, error)
	SetAnalysis(ctx context.Context, filter domain.AnalysisFilter, result *domain.AccuracyAnalysisResult) error
	InvalidateAll(ctx context.Context) error
}

type redisAccuracyCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopAccuracyCache struct{}

func NewAccuracyCache(cfg config.CacheConfig) (AccuracyCache, error) {
	if !cfg.Enabled {
		return &noopAccuracyCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisAccuracyCache(client, ttl), nil
}

// NewRedisAccuracyCache wraps an existing client.
func NewRedisAccuracyCache(client *redis.Client, ttl time.Duration) AccuracyCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisAccuracyCache{client: client, ttl: ttl}
}

func NewNoopAccuracyCache() AccuracyCache {
	return &noopAccuracyCache{}
}

func (c *redisAccuracyCache) GetAnalysis(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, bool, error) {
	payload, err := c.client.Get(ctx, buildAnalysisKey(filter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.AccuracyAnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode accuracy analysis cache: %w", err)
	}
	return &result, true, nil
}

func (c *redisAccuracyCache) SetAnalysis(ctx context.Context, filter domain.AnalysisFilter, result *domain.AccuracyAnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode accuracy analysis cache: %w", err)
	}

	if err := c.client.Set(ctx, buildAnalysisKey(filter), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisAccuracyCache) InvalidateAll(ctx context.Context) error {
	removed, err := unlinkByPrefix(ctx, c.client, accuracyAnalysisKeyPrefix, accuracyScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Int("keys", removed).Msg("accuracy cache invalidated")
	return nil
}

func (n *noopAccuracyCache) GetAnalysis(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, bool, error) {
	return nil, false, nil
}

func (n *noopAccuracyCache) SetAnalysis(ctx context.Context, filter domain.AnalysisFilter, result *domain.AccuracyAnalysisResult) error {
	return nil
}

func (n *noopAccuracyCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildAnalysisKey(filter domain.AnalysisFilter) string {
	return fmt.Sprintf("%s:%s", accuracyAnalysisKeyPrefix, analysisFilterHash(filter))
}

func analysisFilterHash(filter domain.AnalysisFilter) string {
	raw := strings.Join([]string{
		"from=" + filter.From.Format(domain.DateLayout),
		"to=" + filter.To.Format(domain.DateLayout),
		// market ids are matched case-sensitively by the store
		"market_id=" + strings.TrimSpace(filter.MarketID),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
