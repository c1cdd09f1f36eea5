package recommend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/cache"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/catalog"
	"github.com/spherical-ai/spherical/libs/car-matcher/internal/observability"
)

// ResultCache caches recommendation results keyed by criteria and catalog version.
type ResultCache struct {
	client cache.Client
	logger *observability.Logger
	config ResultCacheConfig
}

// ResultCacheConfig configures the result cache.
type ResultCacheConfig struct {
	// TTL is how long a result stays cached
	TTL time.Duration
	// KeyPrefix is the cache key prefix
	KeyPrefix string
	// Enabled controls whether caching is active
	Enabled bool
}

// DefaultResultCacheConfig returns default cache configuration.
func DefaultResultCacheConfig() ResultCacheConfig {
	return ResultCacheConfig{
		TTL:       5 * time.Minute,
		KeyPrefix: "rec:",
		Enabled:   true,
	}
}

// NewResultCache creates a new result cache.
func NewResultCache(client cache.Client, logger *observability.Logger, config ResultCacheConfig) *ResultCache {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rec:"
	}
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &ResultCache{
		client: client,
		logger: logger,
		config: config,
	}
}

// Key builds a deterministic key. Usage and priority order is part of the key
// because it shows up in the summary text.
func (c *ResultCache) Key(criteria catalog.Criteria, catalogVersion string) string {
	data, _ := json.Marshal(criteria)
	hash := sha256.Sum256(data)
	return cache.CacheKey(c.config.KeyPrefix+catalogVersion, hex.EncodeToString(hash[:16]))
}

type cachedResult struct {
	Result   *Result   `json:"result"`
	CachedAt time.Time `json:"cachedAt"`
}

// Get returns a cached result if available.
func (c *ResultCache) Get(ctx context.Context, criteria catalog.Criteria, catalogVersion string) (*Result, bool) {
	if !c.config.Enabled || c.client == nil {
		return nil, false
	}

	key := c.Key(criteria, catalogVersion)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil || cached.Result == nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping unreadable cached result")
		if err := c.client.Delete(ctx, key); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache delete error")
		}
		return nil, false
	}

	c.logger.Debug().Str("key", key).Msg("Cache hit")
	return cached.Result, true
}

// Set caches a result.
func (c *ResultCache) Set(ctx context.Context, criteria catalog.Criteria, catalogVersion string, result *Result) error {
	if !c.config.Enabled || c.client == nil {
		return nil
	}

	key := c.Key(criteria, catalogVersion)
	data, err := json.Marshal(cachedResult{Result: result, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.config.TTL); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache result")
		return err
	}

	c.logger.Debug().Str("key", key).Dur("ttl", c.config.TTL).Msg("Cached result")
	return nil
}

// Invalidate drops every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	if !c.config.Enabled || c.client == nil {
		return nil
	}

	c.logger.Info().Str("prefix", c.config.KeyPrefix).Msg("Invalidating recommendation cache")
	return c.client.DeleteByPrefix(ctx, c.config.KeyPrefix)
}
