// Package redis 用户缓存操作
package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"reminder/internal/shared/cache"
	"reminder/internal/shared/model"
)

// GetUser 获取缓存的用户，未命中返回 (nil, nil)
func (s *Store) GetUser(ctx context.Context, username string) (*model.User, error) {
	data, err := s.client.Get(ctx, cache.KeyUser+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUser 缓存用户，过期时间为 Store 的 ttl
func (s *Store) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.KeyUser+user.Username, data, s.ttl).Err()
}
