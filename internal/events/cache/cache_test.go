package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// setupTestRedis creates a Redis client using miniredis for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestSetGetInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)

	c.Set(ctx, &models.Event{ID: 7, Name: "Go Meetup", Date: "2099-01-01", Time: "10:00", Location: "Berlin", CreatorEmail: "alice@example.com"}, gen)
	assert.True(t, mr.Exists("event:7"))
	assert.Equal(t, time.Minute, mr.TTL("event:7"))

	got, _, ok := c.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Go Meetup", got.Name)
	assert.Equal(t, "alice@example.com", got.CreatorEmail)

	c.Invalidate(ctx, 7)
	_, gen, ok = c.Get(ctx, 7)
	assert.False(t, ok)
	assert.Equal(t, int64(1), gen)
}

func TestFillAfterInvalidateIsDropped(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	_, gen, ok := c.Get(ctx, 5)
	require.False(t, ok)

	// a writer invalidates while the reader is still loading from the store
	c.Invalidate(ctx, 5)
	c.Set(ctx, &models.Event{ID: 5, Name: "Stale"}, gen)

	assert.False(t, mr.Exists("event:5"))
	_, _, ok = c.Get(ctx, 5)
	assert.False(t, ok)

	_, gen, _ = c.Get(ctx, 5)
	c.Set(ctx, &models.Event{ID: 5, Name: "Fresh"}, gen)
	got, _, ok := c.Get(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, "Fresh", got.Name)
}

func TestEntriesExpire(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, time.Minute, logger.NewNop())
	ctx := context.Background()

	c.Set(ctx, &models.Event{ID: 1, Name: "Go Meetup"}, 0)
	mr.FastForward(2 * time.Minute)

	_, _, ok := c.Get(ctx, 1)
	assert.False(t, ok)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, time.Minute, logger.NewNop())

	require.NoError(t, mr.Set("event:3", "{not json"))

	_, _, ok := c.Get(context.Background(), 3)
	assert.False(t, ok)
	assert.False(t, mr.Exists("event:3"))
}

func TestUnavailableRedisIsAMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, time.Minute, logger.NewNop())
	mr.Close()

	c.Set(context.Background(), &models.Event{ID: 1}, 0)
	_, _, ok := c.Get(context.Background(), 1)
	assert.False(t, ok)
}

func TestConnect(t *testing.T) {
	_, mr := setupTestRedis(t)

	client, err := Connect(context.Background(), mr.Addr(), logger.NewNop())
	require.NoError(t, err)
	client.Close()

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr(), logger.NewNop())
	assert.Error(t, err)
}
