package memory

import (
	"context"
	"sync"
	"time"
)

const (
	loginRateLimitWindow = 10 * time.Minute
	loginRateLimitMax    = 10
)

type item struct {
	val string
	exp time.Time
}

// Client — in-memory реализация storage.SessionStore для разработки и тестов.
type Client struct {
	mu         sync.RWMutex
	sessions   map[string]item
	limit      map[string][]time.Time
	sessionTTL time.Duration
}

func New(sessionTTL time.Duration) *Client {
	return &Client{
		sessions:   make(map[string]item),
		limit:      make(map[string][]time.Time),
		sessionTTL: sessionTTL,
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSession(ctx context.Context, sessionID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sessionID] = item{val: userID, exp: time.Now().Add(c.sessionTTL)}
	return nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.sessions[sessionID]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}

func (c *Client) CheckLoginRateLimit(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-loginRateLimitWindow)
	var kept []time.Time
	for _, t := range c.limit[key] {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= loginRateLimitMax {
		c.limit[key] = kept
		return false, nil
	}
	c.limit[key] = append(kept, now)
	return true, nil
}
