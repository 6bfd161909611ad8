// Package cache 短时间缓存渲染好的页面，匿名流量集中访问首页时不必每次重新组装信息流
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/gin-blog/config"
)

// Store 页面缓存；Get 不返回过期条目，Clear 之后所有旧条目立即不可读
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// New 按 cfg.Backend 创建缓存；client 仅 redis 后端使用，其余情况可为 nil
func New(cfg config.CacheConfig, client *redis.Client) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("cache: redis backend requires a redis client")
		}
		return NewRedisStore(client, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unsupported backend %q", cfg.Backend)
	}
}
