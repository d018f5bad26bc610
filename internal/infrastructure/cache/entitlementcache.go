package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	appentitlement "github.com/bilim-app/bilim/internal/application/entitlement"
)

const (
	entitlementKeyPrefix = "entitlement:view:"
	entitlementBaseTTL   = 5 * time.Minute
	entitlementTTLJitter = 30 * time.Second
)

// EntitlementCache caches entitlement views in Redis. TTLs carry a small
// jitter so a burst of misses does not expire in lockstep.
type EntitlementCache struct {
	client *redis.Client
}

func NewEntitlementCache(client *redis.Client) *EntitlementCache {
	return &EntitlementCache{client: client}
}

func (c *EntitlementCache) Get(ctx context.Context, userID uint) (*appentitlement.View, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read entitlement cache: %w", err)
	}

	var view appentitlement.View
	if err := json.Unmarshal(data, &view); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, nil
	}
	return &view, nil
}

func (c *EntitlementCache) Set(ctx context.Context, userID uint, view *appentitlement.View) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal entitlement view: %w", err)
	}

	ttl := entitlementBaseTTL + time.Duration(rand.Int63n(int64(entitlementTTLJitter)))
	if err := c.client.Set(ctx, c.key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write entitlement cache: %w", err)
	}
	return nil
}

func (c *EntitlementCache) Invalidate(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	return nil
}

func (c *EntitlementCache) key(userID uint) string {
	return fmt.Sprintf("%s%d", entitlementKeyPrefix, userID)
}
