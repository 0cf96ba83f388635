package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/clinic/config"
)

// ErrCacheMiss is returned when the key is absent or caching is disabled.
var ErrCacheMiss = errors.New("cache miss")

// Cache wraps redis with JSON marshalling. When disabled every read misses
// and every write is a no-op, so callers never need to branch on config.
type Cache struct {
	client  *redis.Client
	enabled bool
}

func New(cfg *config.Config) *Cache {
	if !cfg.Redis.Enabled {
		log.Info().Msg("redis cache disabled")
		return &Cache{enabled: false}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, continuing without cache")
		return &Cache{enabled: false}
	}

	log.Info().Str("addr", client.Options().Addr).Msg("redis cache connected")

	return &Cache{client: client, enabled: true}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled {
		return ErrCacheMiss
	}

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to read from cache")
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}

	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for cache")
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to write to cache")
	}

	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled || len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "failed to delete cache keys")
	}

	return nil
}

func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}

// ScheduleKey is the cache key for one doctor's schedule list.
func ScheduleKey(doctorProfileID uuid.UUID) string {
	return fmt.Sprintf("schedule:%s", doctorProfileID)
}

// DoctorProfileKey is the cache key for one doctor profile.
func DoctorProfileKey(id uuid.UUID) string {
	return fmt.Sprintf("doctor_profile:%s", id)
}
