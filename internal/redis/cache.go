package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"lex-intake/internal/domain/intake"
)

// Cache key patterns:
// - intake:limits - backend-supplied upload limits, TTL-bound

const limitsKey = "intake:limits"

// LimitsCache keeps the backend-supplied upload limits in Redis so every
// intake session does not re-fetch them.
type LimitsCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewLimitsCache(client *goredis.Client, ttl time.Duration) *LimitsCache {
	return &LimitsCache{client: client, ttl: ttl}
}

// Get retrieves cached limits. A cache miss returns (nil, nil).
func (c *LimitsCache) Get(ctx context.Context) (*intake.UploadLimits, error) {
	data, err := c.client.Get(ctx, limitsKey).Result()
	if err == goredis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		return nil, err
	}

	var limits intake.UploadLimits
	if err := json.Unmarshal([]byte(data), &limits); err != nil {
		return nil, err
	}
	return &limits, nil
}

// Set stores limits with the configured TTL.
func (c *LimitsCache) Set(ctx context.Context, limits intake.UploadLimits) error {
	data, err := json.Marshal(limits)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, limitsKey, data, c.ttl).Err()
}
