package product

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is the small key-value surface the product cache needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// MapCache is a process-local Cache without expiry.
type MapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMapCache() *MapCache {
	return &MapCache{items: map[string][]byte{}}
}

func (c *MapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *MapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *MapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// CachedRepository serves GetByID through the cache and invalidates on writes.
// Cache failures fall through to the underlying repository.
type CachedRepository struct {
	Repository
	cache Cache
	ttl   time.Duration
}

func NewCachedRepository(repo Repository, cache Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache, ttl: ttl}
}

func cacheKey(id int) string {
	return "product:" + strconv.Itoa(id)
}

func (r *CachedRepository) GetByID(ctx context.Context, id int) (Product, error) {
	key := cacheKey(id)
	if raw, err := r.cache.Get(ctx, key); err == nil {
		var p Product
		if json.Unmarshal(raw, &p) == nil {
			return p, nil
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		logger.Warn().Err(err).Str("key", key).Msg("product cache read failed")
	}

	p, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("product cache write failed")
		}
	}
	return p, nil
}

func (r *CachedRepository) Update(ctx context.Context, p Product) (Product, error) {
	updated, err := r.Repository.Update(ctx, p)
	r.invalidate(ctx, p.ID)
	return updated, err
}

func (r *CachedRepository) Delete(ctx context.Context, id int) error {
	err := r.Repository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

func (r *CachedRepository) invalidate(ctx context.Context, id int) {
	if err := r.cache.Delete(ctx, cacheKey(id)); err != nil {
		logger.Warn().Err(err).Int("product_id", id).Msg("product cache invalidation failed")
	}
}
