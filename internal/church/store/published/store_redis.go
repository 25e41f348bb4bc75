package published

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"visita/internal/church/models"
	"visita/pkg/platform/sentinel"
)

const publishedKeyPrefix = "visita:published:"

// RedisCache caches the approved public view of a profile. The database stays
// the source of truth; entries expire on their own and every chancery action
// that changes the live record invalidates the key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func key(churchID uuid.UUID) string {
	return publishedKeyPrefix + churchID.String()
}

func (c *RedisCache) Get(ctx context.Context, churchID uuid.UUID) (models.FieldMap, error) {
	raw, err := c.client.Get(ctx, key(churchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get published view: %w", err)
	}
	var fields models.FieldMap
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal published view: %w", err)
	}
	return fields, nil
}

func (c *RedisCache) Set(ctx context.Context, churchID uuid.UUID, view models.FieldMap) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal published view: %w", err)
	}
	if err := c.client.Set(ctx, key(churchID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set published view: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, churchID uuid.UUID) error {
	if err := c.client.Del(ctx, key(churchID)).Err(); err != nil {
		return fmt.Errorf("invalidate published view: %w", err)
	}
	return nil
}
