package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLSummary keyed by poll version, so entries never go stale
const TTLSummary = 10 * time.Minute

// 캐시 키 접두사
const (
	PrefixSummary = "poll:summary:"
)

// ErrMiss is returned when a key is absent or the cache is disabled
var ErrMiss = errors.New("cache miss")

// Service Redis 캐시 서비스 인터페이스
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// 결과 요약 캐시
	GetSummary(ctx context.Context, code string, version int64, dest interface{}) error
	SetSummary(ctx context.Context, code string, version int64, data interface{}) error
	InvalidateSummaries(ctx context.Context, code string) error

	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache Redis 기반 캐시 구현
type redisCache struct {
	client *redis.Client
}

// NewService 새로운 캐시 서비스 생성. A nil client yields a cache that
// always misses.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		return err
	}

	return json.Unmarshal(data, dest)
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // Redis 없으면 무시
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// SummaryKey cache key for a poll's chart data at a given version
func SummaryKey(code string, version int64) string {
	return fmt.Sprintf("%s%s:v%d", PrefixSummary, code, version)
}

func (c *redisCache) GetSummary(ctx context.Context, code string, version int64, dest interface{}) error {
	return c.Get(ctx, SummaryKey(code, version), dest)
}

func (c *redisCache) SetSummary(ctx context.Context, code string, version int64, data interface{}) error {
	return c.Set(ctx, SummaryKey(code, version), data, TTLSummary)
}

func (c *redisCache) InvalidateSummaries(ctx context.Context, code string) error {
	if c.client == nil {
		return nil
	}
	return c.deleteByPattern(ctx, PrefixSummary+code+":*")
}

// deleteByPattern 패턴에 맞는 키 삭제 (SCAN 사용)
func (c *redisCache) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
