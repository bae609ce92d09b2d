// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/tally/models"
)

// Entry is one computed results summary.
type Entry struct {
	SurveyID   string                       `json:"survey_id"`
	Size       int                          `json:"size"`
	ComputedAt time.Time                    `json:"computed_at"`
	Results    models.SurveyResultsResponse `json:"results"`
}

// Cache stores computed entries by survey id.
type Cache interface {
	Get(ctx context.Context, surveyID string) (Entry, bool, error)
	Put(ctx context.Context, entry Entry, ttl time.Duration) error
}

// MemoryCache is an in-process Cache. Entries never expire on their own;
// Service checks their age.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, surveyID string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[surveyID]
	return entry, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, entry Entry, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.SurveyID] = entry
	return nil
}

// RedisCache shares entries between instances. Keys expire after the ttl
// passed to Put.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at url.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{client: client, prefix: "tally:results:"}, nil
}

func (c *RedisCache) key(surveyID string) string {
	return c.prefix + surveyID
}

func (c *RedisCache) Get(ctx context.Context, surveyID string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, c.key(surveyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached results: %w", err)
	}
	return entry, true, nil
}

func (c *RedisCache) Put(ctx context.Context, entry Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.client.Set(ctx, c.key(entry.SurveyID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
