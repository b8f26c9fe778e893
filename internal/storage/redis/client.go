package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rate limit входа: 10 попыток / 10 минут на ключ (username или IP).
const (
	loginRateLimitWindow = 10 * time.Minute
	loginRateLimitMax    = 10
)

type Client struct {
	cli        *redis.Client
	sessionTTL time.Duration
}

func New(ctx context.Context, url string, sessionTTL time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli, sessionTTL: sessionTTL}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetSession сохраняет сессию по ключу session:{id}; TTL продлевается при перезаписи.
func (c *Client) SetSession(ctx context.Context, sessionID, userID string) error {
	return c.cli.Set(ctx, "session:"+sessionID, userID, c.sessionTTL).Err()
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (string, error) {
	val, err := c.cli.Get(ctx, "session:"+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.cli.Del(ctx, "session:"+sessionID).Err()
}

// CheckLoginRateLimit инкрементирует login_limit:{key}; при превышении лимита — отказ (HTTP 429).
func (c *Client) CheckLoginRateLimit(ctx context.Context, key string) (bool, error) {
	k := "login_limit:" + key
	n, err := c.cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, k, loginRateLimitWindow)
	}
	return n <= int64(loginRateLimitMax), nil
}
