// Package cache 缓存层抽象接口
//
// 提供认证路径上的用户查找缓存，当前由 Redis 实现；未配置时使用 NoOpCache。
package cache

import (
	"context"

	"reminder/internal/shared/model"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// UserCache 按用户名缓存用户身份
//
// 缓存内容不含密码哈希（model.User 的 hashed_password 不参与 JSON 序列化），
// 只用于令牌解析，登录仍然读取存储。
type UserCache interface {
	// GetUser 未命中返回 (nil, nil)
	GetUser(ctx context.Context, username string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
}

// ============================================================================
// 组合接口
// ============================================================================

// Cache 缓存组合接口
type Cache interface {
	UserCache
	Ping(ctx context.Context) error
	Close() error
}
