// Package cache keeps a read-through copy of single events in Redis.
// Every failure is logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const keyPrefix = "event:"

type Cache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func New(client *redis.Client, ttl time.Duration, l *logger.Logger) *Cache {
	return &Cache{Client: client, TTL: ttl, Logger: l}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr string, l *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	l.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", addr, client.Options().DB))
	return client, nil
}

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// genKey holds a counter bumped on every invalidation. A fill carries the
// generation seen at miss time and is dropped if it moved since.
func genKey(id int64) string {
	return key(id) + ":gen"
}

var errStaleFill = errors.New("generation moved")

// Get returns the cached event. On a miss it returns the current generation,
// which the caller hands back to Set once it has loaded the event.
func (c *Cache) Get(ctx context.Context, id int64) (*models.Event, int64, bool) {
	vals, err := c.Client.MGet(ctx, key(id), genKey(id)).Result()
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("Cache read for event %d failed: %v", id, err))
		return nil, 0, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		gen, _ = strconv.ParseInt(raw, 10, 64)
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}

	var event models.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("Dropping corrupt cache entry for event %d: %v", id, err))
		c.Invalidate(ctx, id)
		return nil, gen, false
	}
	return &event, gen, true
}

// Set stores event unless it was invalidated after gen was read.
func (c *Cache) Set(ctx context.Context, event *models.Event, gen int64) {
	raw, err := json.Marshal(event)
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("Cache encode for event %d failed: %v", event.ID, err))
		return
	}

	err = c.Client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey(event.ID)).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(event.ID), raw, c.TTL)
			return nil
		})
		return err
	}, genKey(event.ID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		c.Logger.Debug("REDIS", fmt.Sprintf("Skipping stale cache fill for event %d", event.ID))
	default:
		c.Logger.Warn("REDIS", fmt.Sprintf("Cache write for event %d failed: %v", event.ID, err))
	}
}

// Invalidate drops the entry and bumps the generation so in-flight fills
// that read the old state are discarded.
func (c *Cache) Invalidate(ctx context.Context, id int64) {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(id))
		pipe.Del(ctx, key(id))
		return nil
	})
	if err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("Cache invalidate for event %d failed: %v", id, err))
	}
}
