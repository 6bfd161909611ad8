package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/pkg/logger"
)

// RedisStore 多进程共享的页面缓存。键带代数前缀，Clear 递增代数，
// 旧条目不再被读取，随 TTL 自然过期
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "pagecache"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) genKey() string { return s.prefix + ":gen" }

func (s *RedisStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, s.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *RedisStore) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:gen:%d:%s", s.prefix, gen, key)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	gen, err := s.generation(ctx)
	if err != nil {
		logger.Warn("page cache generation lookup failed", zap.Error(err))
		return nil, false
	}
	data, err := s.client.Get(ctx, s.entryKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("page cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	gen, err := s.generation(ctx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.entryKey(gen, key), value, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Incr(ctx, s.genKey()).Err()
}
