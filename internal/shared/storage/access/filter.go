// Package access 按所有者限定的资源访问
//
// 两部分：
//   - filter.go: 过滤条件构造（业务代码只能通过这里得到 Filter）
//   - orfail.go: fetch-or-fail 协议，把“ID 非法 / 不存在 / 不属于调用者”统一为 storage.ErrNotFound
//
// 不存在与不属于调用者对外不可区分，避免泄露资源是否存在。
package access

import (
	"fmt"

	"reminder/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Filter 不透明的查询条件，零值匹配不到任何受保护资源
type Filter struct {
	d bson.D
}

// BSON 返回传给 storage.Collection 的过滤文档（副本）
func (f Filter) BSON() bson.D {
	out := make(bson.D, len(f.d))
	copy(out, f.d)
	return out
}

// Owned 构造 {owner_id: ownerID, _id: resourceID}
//
// resourceID 必须是 24 位 hex ObjectID，否则返回 storage.ErrNotFound 而不是参数错误。
func Owned(ownerID, resourceID string) (Filter, error) {
	if ownerID == "" {
		return Filter{}, storage.ErrNotFound
	}
	oid, err := ParseID(resourceID)
	if err != nil {
		return Filter{}, storage.ErrNotFound
	}
	return Filter{d: bson.D{
		{Key: "owner_id", Value: ownerID},
		{Key: "_id", Value: oid},
	}}, nil
}

// OwnedBy 构造 {owner_id: ownerID}，用于列表查询
func OwnedBy(ownerID string) Filter {
	return Filter{d: bson.D{{Key: "owner_id", Value: ownerID}}}
}

// ByUsername 构造 {username: username}
func ByUsername(username string) Filter {
	return Filter{d: bson.D{{Key: "username", Value: username}}}
}

// ParseID 解析资源 ID，格式非法时返回包装了 storage.ErrInvalidID 的错误
func ParseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("%w: %q", storage.ErrInvalidID, id)
	}
	return oid, nil
}
