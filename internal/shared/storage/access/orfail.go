package access

import (
	"context"
	"errors"

	"reminder/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Op 一次预先绑定了集合与 filter/update 的存储操作
type Op[T any] func(ctx context.Context) (T, error)

// OrFail 执行 op 并规范化结果：
//   - 存储返回 ErrInvalidID / ErrNotFound → storage.ErrNotFound
//   - found(result) 为 false（没有匹配或零影响）→ storage.ErrNotFound
//   - 其他错误原样返回
func OrFail[T any](ctx context.Context, op Op[T], found func(T) bool) (T, error) {
	res, ok, err := run(ctx, op, found)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		var zero T
		return zero, storage.ErrNotFound
	}
	return res, nil
}

// FailIfFound 与 OrFail 相反：没有匹配时成功，存在匹配时返回 storage.ErrDuplicate
func FailIfFound[T any](ctx context.Context, op Op[T], found func(T) bool) error {
	_, ok, err := run(ctx, op, found)
	if err != nil {
		return err
	}
	if ok {
		return storage.ErrDuplicate
	}
	return nil
}

func run[T any](ctx context.Context, op Op[T], found func(T) bool) (T, bool, error) {
	res, err := op(ctx)
	switch {
	case err == nil:
		return res, found(res), nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidID):
		return res, false, nil
	default:
		return res, false, err
	}
}

func notNil[T any](v *T) bool { return v != nil }

func matched(r *storage.UpdateResult) bool { return r != nil && r.MatchedCount > 0 }

func deleted(r *storage.DeleteResult) bool { return r != nil && r.DeletedCount > 0 }

// findOp 绑定 FindOne
func findOp[T any](col storage.Collection, f Filter) Op[*T] {
	return func(ctx context.Context) (*T, error) {
		var doc T
		if err := col.FindOne(ctx, f.BSON(), &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}
}

// FindOne 查找 filter 匹配的唯一文档，找不到返回 storage.ErrNotFound
func FindOne[T any](ctx context.Context, col storage.Collection, f Filter) (*T, error) {
	return OrFail[*T](ctx, findOp[T](col, f), notNil[T])
}

// UpdateOne 对 filter 匹配的文档执行 update，没有匹配返回 storage.ErrNotFound
//
// 匹配但未修改（如 $addToSet 已存在的值）视为成功。
func UpdateOne(ctx context.Context, col storage.Collection, f Filter, update bson.D) (*storage.UpdateResult, error) {
	return OrFail[*storage.UpdateResult](ctx, func(ctx context.Context) (*storage.UpdateResult, error) {
		return col.UpdateOne(ctx, f.BSON(), update)
	}, matched)
}

// DeleteOne 删除 filter 匹配的文档，没有删除返回 storage.ErrNotFound
func DeleteOne(ctx context.Context, col storage.Collection, f Filter) (*storage.DeleteResult, error) {
	return OrFail[*storage.DeleteResult](ctx, func(ctx context.Context) (*storage.DeleteResult, error) {
		return col.DeleteOne(ctx, f.BSON())
	}, deleted)
}

// EnsureAbsent filter 匹配到文档时返回 storage.ErrDuplicate
func EnsureAbsent[T any](ctx context.Context, col storage.Collection, f Filter) error {
	return FailIfFound[*T](ctx, findOp[T](col, f), notNil[T])
}

// FindAll 列出 filter 匹配的所有文档，结果至少是空切片
func FindAll[T any](ctx context.Context, col storage.Collection, f Filter) ([]*T, error) {
	var docs []*T
	if err := col.Find(ctx, f.BSON(), &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []*T{}
	}
	return docs, nil
}
