package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cinelist/internal/inbox"
)

// Cache stores resolved details. A cached entry with Missing set records a
// title the provider does not know, so it is not asked again until expiry.
type Cache interface {
	Get(ctx context.Context, kind inbox.MediaKind, externalID int64) (entry *CacheEntry, ok bool, err error)
	Set(ctx context.Context, kind inbox.MediaKind, externalID int64, entry CacheEntry, ttl time.Duration) error
}

type CacheEntry struct {
	Details
	Missing bool
}

type RedisCache struct {
	client   *redis.Client
	language string
}

// NewRedisCache connects with a redis:// URL and pings once.
func NewRedisCache(ctx context.Context, redisURL, language string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: rdb, language: language}, nil
}

// keys are per language since titles are localized
func (c *RedisCache) key(kind inbox.MediaKind, externalID int64) string {
	return fmt.Sprintf("metadata:%s:%s:%d", c.language, kind, externalID)
}

func (c *RedisCache) Get(ctx context.Context, kind inbox.MediaKind, externalID int64) (*CacheEntry, bool, error) {
	fields, err := c.client.HGetAll(ctx, c.key(kind, externalID)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &CacheEntry{
		Details: Details{Title: fields["title"], PosterPath: fields["poster_path"]},
		Missing: fields["missing"] == "1",
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, kind inbox.MediaKind, externalID int64, entry CacheEntry, ttl time.Duration) error {
	key := c.key(kind, externalID)
	missing := "0"
	if entry.Missing {
		missing = "1"
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"title":       entry.Title,
			"poster_path": entry.PosterPath,
			"missing":     missing,
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
