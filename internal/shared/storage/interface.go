// Package storage 定义文档存储层抽象接口
//
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖 Gateway/Collection 接口，不知道具体实现
//   - 具体实现在子包中：mongostore/（生产）、memstore/（测试）
//   - 初始化时通过依赖注入传入实现
//
// 过滤条件统一由 access 包构造，业务代码不直接拼装 filter。
package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collection 名称常量
const (
	ColUsers  = "users"
	ColEvents = "events"
)

// UpdateResult update_one 的结果
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult delete_one 的结果
type DeleteResult struct {
	DeletedCount int64
}

// Collection 单个命名集合的文档操作
//
// FindOne 在没有匹配文档时返回 ErrNotFound；
// UpdateOne/DeleteOne 不匹配时返回零计数结果，由调用方决定是否视为失败。
type Collection interface {
	FindOne(ctx context.Context, filter bson.D, out any) error
	Find(ctx context.Context, filter bson.D, out any) error
	InsertOne(ctx context.Context, doc any) error
	UpdateOne(ctx context.Context, filter, update bson.D) (*UpdateResult, error)
	DeleteOne(ctx context.Context, filter bson.D) (*DeleteResult, error)
}

// Gateway 按名称访问集合；实现必须可被多个请求并发使用
type Gateway interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}
