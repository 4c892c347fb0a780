// Package storage 定义存储层领域错误
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// 各驱动实现（mongostore/memstore）负责将底层错误转换为这些领域错误。
package storage

import "errors"

var (
	// ErrNotFound 实体不存在
	// 替代 mongo.ErrNoDocuments；资源不属于调用者时同样返回此错误
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidID 资源 ID 格式非法（非 24 位 hex ObjectID）
	ErrInvalidID = errors.New("invalid resource id")

	// ErrDuplicate 唯一键冲突
	ErrDuplicate = errors.New("duplicate: entity already exists")

	// ErrUnavailable 存储不可达（网络错误、超时、ping 失败）
	ErrUnavailable = errors.New("storage unavailable")
)
