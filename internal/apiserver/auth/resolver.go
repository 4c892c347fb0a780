package auth

import (
	"context"
	"errors"
	"fmt"

	"reminder/internal/shared/cache"
	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/pkg/logging"
)

var errUnknownUser = errors.New("unknown user")

// UserLookup 按用户名查找用户
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// Resolver 把 bearer 令牌解析为当前用户
type Resolver struct {
	tokens *Issuer
	users  UserLookup
	cache  cache.UserCache
	logger *logging.Logger
}

// NewResolver 创建 Resolver；userCache 为 nil 时不缓存
func NewResolver(tokens *Issuer, users UserLookup, userCache cache.UserCache, logger *logging.Logger) *Resolver {
	if userCache == nil {
		userCache = cache.NewNoOpCache()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{tokens: tokens, users: users, cache: userCache, logger: logger}
}

// Resolve 校验令牌并加载用户
//
// 令牌非法、过期、缺少 subject、用户不存在都返回 model.ErrUnauthorized，对外不可区分。
// 存储不可用等错误原样返回。
func (r *Resolver) Resolve(ctx context.Context, token string) (*model.User, error) {
	username, err := r.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	cached, err := r.cache.GetUser(ctx, username)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("user cache get failed")
	}
	if cached != nil {
		return cached, nil
	}

	user, err := r.users.GetByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", model.ErrUnauthorized, errUnknownUser)
	}
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetUser(ctx, user); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("user cache set failed")
	}
	return user, nil
}

// Current 解析令牌并要求用户处于启用状态
func (r *Resolver) Current(ctx context.Context, token string) (*model.User, error) {
	user, err := r.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := Activate(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Activate 禁用用户返回 model.ErrInactiveUser
func Activate(user *model.User) error {
	if user.Disabled {
		return model.ErrInactiveUser
	}
	return nil
}

// FailureReason 认证失败原因，用于指标与日志
func FailureReason(err error) string {
	switch {
	case errors.Is(err, errMissingToken):
		return "missing_token"
	case errors.Is(err, errTokenExpired):
		return "expired"
	case errors.Is(err, errNoSubject):
		return "no_subject"
	case errors.Is(err, errUnknownUser):
		return "unknown_user"
	case errors.Is(err, model.ErrInactiveUser):
		return "inactive"
	case errors.Is(err, model.ErrUnauthorized):
		return "invalid_token"
	default:
		return "error"
	}
}
