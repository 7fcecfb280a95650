package cache

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPost struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis not available, skipping test")
	}
	client.FlushDB(ctx)

	return client
}

func TestPostKey(t *testing.T) {
	assert.Equal(t, "post:1", PostKey(1))
	assert.Equal(t, "post:250", PostKey(250))
}

func TestPostCache_DisabledIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewPostCache(nil)

	require.NoError(t, c.Set(ctx, PostKey(1), cachedPost{ID: 1}))

	var got cachedPost
	hit, err := c.Get(ctx, PostKey(1), &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Delete(ctx, PostKey(1)))

	var nilCache *PostCache
	hit, err = nilCache.Get(ctx, PostKey(1), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPostCache_SetGetDelete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	c := NewPostCache(client)

	var got cachedPost
	hit, err := c.Get(ctx, PostKey(9), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, PostKey(9), cachedPost{ID: 9, Title: "hello"}))

	hit, err = c.Get(ctx, PostKey(9), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, cachedPost{ID: 9, Title: "hello"}, got)

	ttl, err := client.TTL(ctx, PostKey(9)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl.Seconds(), 0.0)

	require.NoError(t, c.Delete(ctx, PostKey(9)))
	hit, err = c.Get(ctx, PostKey(9), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
