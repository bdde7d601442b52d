package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
	"github.com/redis/go-redis/v9"
)

// ProbeCache shares gateway health probe results across instances with a
// short TTL, so a burst of selections does not re-probe every gateway.
type ProbeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProbeCache(client *redis.Client, ttl time.Duration) *ProbeCache {
	return &ProbeCache{client: client, ttl: ttl}
}

func probeKey(t gateway.Type) string {
	return fmt.Sprintf("gateway:health:%s", t)
}

func (c *ProbeCache) Get(ctx context.Context, t gateway.Type) (bool, bool, error) {
	val, err := c.client.Get(ctx, probeKey(t)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("read probe cache: %w", err)
	}
	return val == "1", true, nil
}

func (c *ProbeCache) Set(ctx context.Context, t gateway.Type, healthy bool) error {
	val := "0"
	if healthy {
		val = "1"
	}
	if err := c.client.Set(ctx, probeKey(t), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("write probe cache: %w", err)
	}
	return nil
}
