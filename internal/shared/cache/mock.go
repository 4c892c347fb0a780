package cache

import (
	"context"

	"reminder/internal/shared/model"
)

// ============================================================================
// NoOpCache - 空操作的 Cache 实现（未配置 Redis 或测试时使用）
// ============================================================================

// NoOpCache 永远未命中
type NoOpCache struct{}

var _ Cache = (*NoOpCache)(nil)

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetUser(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (c *NoOpCache) SetUser(ctx context.Context, user *model.User) error {
	return nil
}

func (c *NoOpCache) Ping(ctx context.Context) error {
	return nil
}

// Close 关闭缓存
func (c *NoOpCache) Close() error {
	return nil
}
