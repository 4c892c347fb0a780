// Package repository 业务实体的类型化存储访问
//
// 所有读写都经过 access 包：事件按 owner_id 限定，
// 不存在、ID 非法、不属于调用者统一返回 storage.ErrNotFound。
package repository

import "reminder/internal/shared/storage"

// Store 按实体分组的存储入口
type Store struct {
	Users  *UserRepository
	Events *EventRepository
}

// NewStore 基于 Gateway 创建存储入口
func NewStore(gw storage.Gateway) *Store {
	return &Store{
		Users:  NewUserRepository(gw),
		Events: NewEventRepository(gw),
	}
}
