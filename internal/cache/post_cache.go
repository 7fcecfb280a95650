package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blog_app/internal/observability"

	"github.com/go-redis/redis/v8"
)

const PostCacheTTL = 10 * time.Minute

// PostCache stores single posts as JSON. A PostCache without a client is a
// permanent miss, so callers need not check whether Redis is configured.
type PostCache struct {
	client *redis.Client
}

func NewPostCache(client *redis.Client) *PostCache {
	return &PostCache{client: client}
}

// Get reads a cached value into dest. It reports false on a miss.
func (c *PostCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.GlobalMetrics.CacheMissesTotal.WithLabelValues("post").Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	observability.GlobalMetrics.CacheHitsTotal.WithLabelValues("post").Inc()
	return true, nil
}

// Set stores data under key with PostCacheTTL
func (c *PostCache) Set(ctx context.Context, key string, data interface{}) error {
	if c == nil || c.client == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, PostCacheTTL).Err()
}

// Delete evicts key
func (c *PostCache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// PostKey builds the cache key for a single post
func PostKey(postID int) string {
	return fmt.Sprintf("post:%d", postID)
}
