package mongostore

import (
	"context"
	"errors"
	"fmt"

	"reminder/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// wrapError 将 MongoDB 错误转换为领域错误
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case errors.Is(err, bson.ErrInvalidHex):
		return storage.ErrInvalidID
	case mongo.IsDuplicateKeyError(err):
		return storage.ErrDuplicate
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

// collection 实现 storage.Collection
type collection struct {
	col *mongo.Collection
}

// FindOne 查找单个文档并解码到 out
func (c *collection) FindOne(ctx context.Context, filter bson.D, out any) error {
	return wrapError(c.col.FindOne(ctx, filter).Decode(out))
}

// Find 查找多个文档，out 必须是切片指针
func (c *collection) Find(ctx context.Context, filter bson.D, out any) error {
	cursor, err := c.col.Find(ctx, filter)
	if err != nil {
		return wrapError(err)
	}
	return wrapError(cursor.All(ctx, out))
}

// InsertOne 插入单个文档
func (c *collection) InsertOne(ctx context.Context, doc any) error {
	_, err := c.col.InsertOne(ctx, doc)
	return wrapError(err)
}

// UpdateOne 更新单个文档
func (c *collection) UpdateOne(ctx context.Context, filter, update bson.D) (*storage.UpdateResult, error) {
	res, err := c.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, wrapError(err)
	}
	return &storage.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// DeleteOne 删除单个文档
func (c *collection) DeleteOne(ctx context.Context, filter bson.D) (*storage.DeleteResult, error) {
	res, err := c.col.DeleteOne(ctx, filter)
	if err != nil {
		return nil, wrapError(err)
	}
	return &storage.DeleteResult{DeletedCount: res.DeletedCount}, nil
}
