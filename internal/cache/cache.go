// Package cache provides a layered cache for assessment responses.
// Identical inputs yield identical assessments, so responses are safe
// to serve from cache keyed on the input digest.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-server/internal/domain"
)

// cachedAssessment wraps a response with cache metadata
type cachedAssessment struct {
	Response  *domain.AssessmentResponse `json:"response"`
	CachedAt  time.Time                  `json:"cached_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

type localEntry struct {
	resp      *domain.AssessmentResponse
	expiresAt time.Time
}

// AssessmentCache is a two-level cache: an in-process LRU backed by an
// optional shared Redis tier. Either tier may be absent.
type AssessmentCache struct {
	local      *lru.Cache[string, localEntry]
	redis      *redis.Client
	defaultTTL time.Duration
	log        *logrus.Logger
}

// NewAssessmentCache creates a cache from configuration. When the
// Redis URL is empty the cache is local-only.
func NewAssessmentCache(cfg domain.CacheConfig, logger *logrus.Logger) (*AssessmentCache, error) {
	size := cfg.LocalSize
	if size <= 0 {
		size = 1024
	}
	local, err := lru.New[string, localEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating local cache: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	c := &AssessmentCache{
		local:      local,
		defaultTTL: ttl,
		log:        logger,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		if cfg.PoolTimeout > 0 {
			opts.PoolTimeout = cfg.PoolTimeout
		}

		client := redis.NewClient(opts)

		// Test connection
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		c.redis = client
		logger.WithFields(logrus.Fields{
			"pool_size": opts.PoolSize,
			"ttl":       ttl,
		}).Info("Redis cache tier enabled")
	}

	return c, nil
}

// Get retrieves a cached response by input digest.
func (c *AssessmentCache) Get(ctx context.Context, key string) (*domain.AssessmentResponse, bool) {
	if entry, ok := c.local.Get(key); ok {
		if time.Now().Before(entry.expiresAt) {
			return entry.resp, true
		}
		c.local.Remove(key)
	}

	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, c.redisKey(key)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).Warn("Redis cache lookup failed")
		return nil, false
	}

	var cached cachedAssessment
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, c.redisKey(key))
		return nil, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, c.redisKey(key))
		return nil, false
	}

	// Promote to the local tier
	c.local.Add(key, localEntry{resp: cached.Response, expiresAt: cached.ExpiresAt})
	return cached.Response, true
}

// Set stores a response under the input digest.
func (c *AssessmentCache) Set(ctx context.Context, key string, resp *domain.AssessmentResponse) error {
	expiresAt := time.Now().Add(c.defaultTTL)
	c.local.Add(key, localEntry{resp: resp, expiresAt: expiresAt})

	if c.redis == nil {
		return nil
	}

	cached := cachedAssessment{
		Response:  resp,
		CachedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}
	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached assessment: %w", err)
	}
	return c.redis.Set(ctx, c.redisKey(key), jsonData, c.defaultTTL).Err()
}

// Invalidate removes a cached response.
func (c *AssessmentCache) Invalidate(ctx context.Context, key string) error {
	c.local.Remove(key)
	if c.redis == nil {
		return nil
	}
	return c.redis.Del(ctx, c.redisKey(key)).Err()
}

// Ping checks the Redis tier, if configured.
func (c *AssessmentCache) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection, if configured.
func (c *AssessmentCache) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

func (c *AssessmentCache) redisKey(key string) string {
	return "assessment:" + key
}
