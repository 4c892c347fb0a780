package repository

import (
	"context"
	"fmt"

	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/internal/shared/storage/access"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserRepository users 集合
type UserRepository struct {
	col storage.Collection
}

// NewUserRepository 创建用户存储
func NewUserRepository(gw storage.Gateway) *UserRepository {
	return &UserRepository{col: gw.Collection(storage.ColUsers)}
}

// GetByUsername 按用户名查找，不存在返回 storage.ErrNotFound
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return access.FindOne[model.User](ctx, r.col, access.ByUsername(username))
}

// Create 创建用户，用户名已存在返回 storage.ErrDuplicate
//
// 先查后写，并发注册同名用户由 users.username 唯一索引兜底。
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := access.EnsureAbsent[model.User](ctx, r.col, access.ByUsername(user.Username)); err != nil {
		return err
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if err := r.col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}
