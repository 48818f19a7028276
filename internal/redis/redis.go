// Package redis is the optional cache connection. Every key is namespaced
// and values are stored as JSON.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vibestack/internal/config"

	redis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "vibe:"
	dialTimeout = 3 * time.Second
)

// ErrCacheMiss is returned by GetJSON when the key does not exist.
var ErrCacheMiss = redis.Nil

var errNotInitialized = errors.New("redis client not initialized")

type Client struct {
	inner *redis.Client
}

// NewRedisClient connects using cfg.Redis. It returns a nil client and no
// error when redis is disabled.
func NewRedisClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	rc := cfg.Redis
	if !rc.Enabled {
		return nil, nil
	}
	host := rc.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := rc.Port
	if port == 0 {
		port = 6379
	}

	inner := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Username:    rc.Username,
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: dialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := inner.Ping(ctx).Err(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", host, port, err)
	}
	return &Client{inner: inner}, nil
}

// SetJSON stores v encoded as JSON under key for ttl.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.inner.Set(ctx, keyPrefix+key, payload, ttl).Err()
}

// GetJSON decodes the value under key into dst.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	raw, err := c.inner.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Del removes the given keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c == nil || c.inner == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return c.inner.Del(ctx, full...).Err()
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}

// Raw exposes the underlying go-redis client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.inner
}
