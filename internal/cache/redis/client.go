package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scheme-sahayak/backend/pkg/logger"
)

const faqLockKey = "faq:generation:lock"

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetSearchResults(ctx context.Context, key string, response interface{}, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("search:%s", key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set search cache: %w", err)
	}

	logger.Debug("Search results cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetSearchResults(ctx context.Context, key string, response interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("search:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get search cache: %w", err)
	}

	err = json.Unmarshal(data, response)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Search cache hit", zap.String("key", key))
	return true, nil
}

// AcquireFAQLock serializes FAQ generation across concurrent requests.
// Returns false when another generation run holds the lock.
func (c *Client) AcquireFAQLock(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, faqLockKey, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire FAQ lock: %w", err)
	}
	return ok, nil
}

func (c *Client) ReleaseFAQLock(ctx context.Context) error {
	if err := c.client.Del(ctx, faqLockKey).Err(); err != nil {
		return fmt.Errorf("failed to release FAQ lock: %w", err)
	}
	return nil
}

// InvalidateSearchCache drops all cached search responses, used after a
// scheme import changes the underlying data.
func (c *Client) InvalidateSearchCache(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "search:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Search cache invalidated")
	return nil
}
