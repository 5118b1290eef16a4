package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ai-demos/gateway/pkg/logger"
)

const sessionKeyPrefix = "session:"

// Client stores serialized gateway sessions.
type Client struct {
	client redis.Cmdable
	closer func() error
}

func NewClient(ctx context.Context, host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, closer: client.Close}, nil
}

// NewClientFrom wraps an existing go-redis client without pinging it.
func NewClientFrom(client redis.Cmdable) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (c *Client) Load(ctx context.Context, id string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}

	logger.Debug("Session cache hit", zap.String("session_id", id))
	return data, true, nil
}

func (c *Client) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, sessionKey(id), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	logger.Debug("Session cached", zap.String("session_id", id), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
