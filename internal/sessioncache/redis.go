// Package sessioncache is a read-through Redis cache in front of the
// sessions table. The table stays the source of truth: a miss or a Redis
// failure always falls back to it.
package sessioncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Entry is the cached part of a session row.
type Entry struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

type Cache struct {
	db *redis.Client
}

// New connects to Redis and pings it once.
func New(ctx context.Context, opts Options) (*Cache, error) {
	const op = "sessioncache.New"
	db := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{db: db}, nil
}

func key(token string) string {
	return keyPrefix + token
}

// Get reports whether token is cached.
func (c *Cache) Get(ctx context.Context, token string) (Entry, bool, error) {
	const op = "sessioncache.Get"
	var e Entry

	val, err := c.db.Get(ctx, key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(val, &e); err != nil {
		return e, false, fmt.Errorf("%s: %w", op, err)
	}
	return e, true, nil
}

// Set stores e until ttl elapses. A non-positive ttl stores nothing.
func (c *Cache) Set(ctx context.Context, token string, e Entry, ttl time.Duration) error {
	const op = "sessioncache.Set"
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.db.Set(ctx, key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, token string) error {
	if err := c.db.Del(ctx, key(token)).Err(); err != nil {
		return fmt.Errorf("sessioncache.Invalidate: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
