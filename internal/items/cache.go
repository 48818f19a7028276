package items

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vibestack/internal/models"
	"vibestack/internal/redis"
)

const (
	redisItemPrefix = "items:item:"
	redisListKey    = "items:list"
)

// RedisCache stores item reads as JSON values with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache returns nil when client is nil so callers can pass the
// result straight to NewService.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) Cache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger.With(slog.String("module", "items"))}
}

func (r *RedisCache) LoadItem(ctx context.Context, id string) (*models.Item, bool) {
	var item models.Item
	if !r.load(ctx, redisItemPrefix+id, &item) {
		return nil, false
	}
	return &item, true
}

func (r *RedisCache) StoreItem(ctx context.Context, item *models.Item) {
	if item == nil {
		return
	}
	r.store(ctx, redisItemPrefix+item.ID, item)
}

func (r *RedisCache) LoadList(ctx context.Context) ([]models.Item, bool) {
	var list []models.Item
	if !r.load(ctx, redisListKey, &list) {
		return nil, false
	}
	return list, true
}

func (r *RedisCache) StoreList(ctx context.Context, list []models.Item) {
	r.store(ctx, redisListKey, list)
}

// Invalidate drops the list key and the given item keys.
func (r *RedisCache) Invalidate(ctx context.Context, ids ...string) {
	keys := []string{redisListKey}
	for _, id := range ids {
		keys = append(keys, redisItemPrefix+id)
	}
	if err := r.client.Del(ctx, keys...); err != nil {
		r.logger.Warn("item cache invalidate failed", slog.String("err", err.Error()))
	}
}

func (r *RedisCache) load(ctx context.Context, key string, dst any) bool {
	if err := r.client.GetJSON(ctx, key, dst); err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			r.logger.Warn("item cache get failed", slog.String("key", key), slog.String("err", err.Error()))
		}
		return false
	}
	return true
}

func (r *RedisCache) store(ctx context.Context, key string, value any) {
	if err := r.client.SetJSON(ctx, key, value, r.ttl); err != nil {
		r.logger.Warn("item cache set failed", slog.String("key", key), slog.String("err", err.Error()))
	}
}
