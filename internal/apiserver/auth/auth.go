// Package auth 用户认证：JWT 令牌、密码哈希、令牌解析、HTTP 中间件
package auth

import (
	"context"
	"time"

	"reminder/internal/shared/model"
)

// contextKey context 键类型
type contextKey string

const ctxKeyAuthUser contextKey = "auth_user"

// 默认值
const (
	DefaultAlgorithm      = "HS256"
	DefaultAccessTokenTTL = 15 * time.Minute
	DefaultLoginTokenTTL  = 30 * time.Minute
	DefaultBcryptCost     = 12
)

// Config 认证配置
type Config struct {
	JWTSecret      string        `yaml:"-"` // 只从 JWT_SECRET 环境变量读取
	Algorithm      string        `yaml:"algorithm"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	LoginTokenTTL  time.Duration `yaml:"login_token_ttl"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
}

// DefaultConfig 返回默认认证配置（不含密钥）
func DefaultConfig() Config {
	return Config{
		Algorithm:      DefaultAlgorithm,
		AccessTokenTTL: DefaultAccessTokenTTL,
		LoginTokenTTL:  DefaultLoginTokenTTL,
		BcryptCost:     DefaultBcryptCost,
	}
}

// withDefaults 补齐未设置的字段
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Algorithm == "" {
		c.Algorithm = d.Algorithm
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = d.AccessTokenTTL
	}
	if c.LoginTokenTTL <= 0 {
		c.LoginTokenTTL = d.LoginTokenTTL
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = d.BcryptCost
	}
	return c
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithAuthUser 将认证用户注入 context
func WithAuthUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKeyAuthUser, user)
}

// GetAuthUser 从 context 获取认证用户，未认证返回 nil
func GetAuthUser(ctx context.Context) *model.User {
	user, _ := ctx.Value(ctxKeyAuthUser).(*model.User)
	return user
}
