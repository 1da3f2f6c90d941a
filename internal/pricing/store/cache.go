package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"panta-workers/internal/common/logger"
	"panta-workers/internal/pricing"
)

const DefaultCacheTTL = 10 * time.Minute

func CacheKey(tenantID pricing.TenantID) string {
	return fmt.Sprintf("pricing:config:%s", tenantID)
}

// CachedSource is a read-through Redis cache in front of another source.
// Redis failures are logged and bypassed.
type CachedSource struct {
	next   pricing.ConfigSource
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(next pricing.ConfigSource, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, redis: rdb, ttl: ttl, logger: log}
}

func (c *CachedSource) FetchPricingConfiguration(ctx context.Context, tenantID pricing.TenantID) (*pricing.ConfigurationOverride, error) {
	key := CacheKey(tenantID)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		override, decErr := decodeOverride(cached)
		if decErr == nil {
			return override, nil
		}
		c.logger.Warn("Discarding unreadable cached pricing configuration", map[string]interface{}{
			"tenantId": string(tenantID),
			"error":    decErr.Error(),
		})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Pricing configuration cache read failed", map[string]interface{}{
			"tenantId": string(tenantID),
			"error":    err.Error(),
		})
	}

	override, err := c.next.FetchPricingConfiguration(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(override); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Pricing configuration cache write failed", map[string]interface{}{
				"tenantId": string(tenantID),
				"error":    err.Error(),
			})
		}
	}

	return override, nil
}

// Invalidate removes the cached configuration for tenantID.
func (c *CachedSource) Invalidate(ctx context.Context, tenantID pricing.TenantID) error {
	if err := c.redis.Del(ctx, CacheKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate pricing configuration cache: %w", err)
	}
	return nil
}
