package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"vitalstream/internal/domain"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// KV 键值缓存接口
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKV Redis 实现
type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

const latestVitalsKey = "vitals:latest"

// latestVitalsTTL 快照缓存过期时间；过期后 /vitals/latest 回源数据库
const latestVitalsTTL = 5 * time.Minute

// LatestVitalsCache 最新读数快照缓存（持久化协作方拥有的缓存，核心只写入值）
type LatestVitalsCache struct {
	kv KV
}

func NewLatestVitalsCache(kv KV) *LatestVitalsCache {
	return &LatestVitalsCache{kv: kv}
}

func (c *LatestVitalsCache) Set(ctx context.Context, vitals domain.LatestVitals) error {
	b, err := json.Marshal(vitals)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, latestVitalsKey, string(b), latestVitalsTTL)
}

func (c *LatestVitalsCache) Get(ctx context.Context) (*domain.LatestVitals, error) {
	val, err := c.kv.Get(ctx, latestVitalsKey)
	if err != nil {
		return nil, err
	}
	var vitals domain.LatestVitals
	if err := json.Unmarshal([]byte(val), &vitals); err != nil {
		return nil, err
	}
	return &vitals, nil
}
