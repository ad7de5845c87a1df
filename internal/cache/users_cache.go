package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/redis/go-redis/v9"
)

const listKey = "userhub:users:list"

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// UsersCache holds the admin list-all response in redis for a short TTL.
// Geolocation results are never cached here; only the persisted listing is.
type UsersCache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func New(cfg Config) *UsersCache {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL

	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &UsersCache{redisdb: redisdb, ttl: ttl}
}

// GetList returns the cached views, if any. Cache misses and redis errors
// look the same to the caller: go load from the store.
func (c *UsersCache) GetList(ctx context.Context) ([]user.PublicView, bool) {
	raw, err := c.redisdb.Get(ctx, listKey).Bytes()

	if err != nil {
		return nil, false
	}

	var views []user.PublicView

	if err := json.Unmarshal(raw, &views); err != nil {
		return nil, false
	}

	return views, true
}

func (c *UsersCache) SetList(ctx context.Context, views []user.PublicView) {
	raw, err := json.Marshal(views)

	if err != nil {
		return
	}

	// best effort, a failed set just means a cold cache
	_ = c.redisdb.Set(ctx, listKey, raw, c.ttl).Err()
}

// Invalidate drops the cached listing after any mutation.
func (c *UsersCache) Invalidate(ctx context.Context) {
	_ = c.redisdb.Del(ctx, listKey).Err()
}

func (c *UsersCache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *UsersCache) Close() error {
	return c.redisdb.Close()
}
