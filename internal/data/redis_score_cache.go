package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
)

const defaultScoreTTL = 24 * time.Hour

// RedisScoreCacheConfig holds configuration options for the score cache.
type RedisScoreCacheConfig struct {
	// TTL bounds how long a cached score is trusted. Zero means the
	// 24 hour default.
	TTL    time.Duration
	Logger *slog.Logger
}

// RedisScoreCache stores compatibility scores keyed by record and category so
// repeated gate runs for the same record reuse earlier LLM verdicts.
type RedisScoreCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisScoreCache creates a RedisScoreCache backed by the given client.
func NewRedisScoreCache(client *redis.Client, cfg RedisScoreCacheConfig) *RedisScoreCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultScoreTTL
	}
	return &RedisScoreCache{
		client: client,
		ttl:    ttl,
		logger: cfg.Logger,
	}
}

func scoreKey(recordID string, category model.Category) string {
	return fmt.Sprintf("screener:score:%s:%s", recordID, category)
}

// Get returns the cached score for (recordID, category), or nil on a miss.
func (c *RedisScoreCache) Get(ctx context.Context, recordID string, category model.Category) (*core.CategoryScore, error) {
	raw, err := c.client.Get(ctx, scoreKey(recordID, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("score cache get: %w", err)
	}

	var score core.CategoryScore
	if err := json.Unmarshal(raw, &score); err != nil {
		// A corrupt entry is treated as a miss and evicted.
		if c.logger != nil {
			c.logger.WarnContext(ctx, "evicting corrupt score cache entry",
				"record_id", recordID, "category", category, "error", err)
		}
		_ = c.client.Del(ctx, scoreKey(recordID, category)).Err()
		return nil, nil
	}
	return &score, nil
}

// Set stores the score for (recordID, category) with the configured TTL.
func (c *RedisScoreCache) Set(ctx context.Context, recordID string, category model.Category, score core.CategoryScore) error {
	raw, err := json.Marshal(score)
	if err != nil {
		return fmt.Errorf("score cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, scoreKey(recordID, category), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("score cache set: %w", err)
	}
	return nil
}

// NoopScoreCache satisfies core.ScoreCache when no redis endpoint is
// configured. Every lookup misses.
type NoopScoreCache struct{}

// Get always reports a miss.
func (NoopScoreCache) Get(context.Context, string, model.Category) (*core.CategoryScore, error) {
	return nil, nil
}

// Set discards the score.
func (NoopScoreCache) Set(context.Context, string, model.Category, core.CategoryScore) error {
	return nil
}
