package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/geoseo-backend/internal/platform/envutil"
	"github.com/yungbote/geoseo-backend/internal/platform/logger"
)

// GenerationCounter tracks how many generations ran on a UTC day.
type GenerationCounter interface {
	// Reserve increments the day's counter and reports whether the new value
	// is within limit. A rejected reservation is released again.
	Reserve(ctx context.Context, day time.Time, limit int) (bool, int64, error)
	Count(ctx context.Context, day time.Time) (int64, error)
	Close() error
}

type generationCounter struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewGenerationCounter connects to REDIS_ADDR and pings it.
func NewGenerationCounter(log *logger.Logger) (GenerationCounter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &generationCounter{
		log:    log.With("service", "RedisGenerationCounter"),
		rdb:    rdb,
		prefix: envutil.String("REDIS_KEY_PREFIX", "geoseo"),
	}, nil
}

func (c *generationCounter) key(day time.Time) string {
	return fmt.Sprintf("%s:generations:%s", c.prefix, day.UTC().Format("2006-01-02"))
}

func (c *generationCounter) Reserve(ctx context.Context, day time.Time, limit int) (bool, int64, error) {
	key := c.key(day)
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := c.rdb.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			c.log.Warn("set generation counter ttl failed", "key", key, "error", err)
		}
	}
	if limit > 0 && n > int64(limit) {
		if err := c.rdb.Decr(ctx, key).Err(); err != nil {
			c.log.Warn("release generation reservation failed", "key", key, "error", err)
		}
		return false, n - 1, nil
	}
	return true, n, nil
}

func (c *generationCounter) Count(ctx context.Context, day time.Time) (int64, error) {
	n, err := c.rdb.Get(ctx, c.key(day)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	return n, err
}

func (c *generationCounter) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
