package repository

import (
	"context"
	"fmt"

	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/internal/shared/storage/access"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventRepository events 集合，所有操作都限定在 ownerID 名下
type EventRepository struct {
	col storage.Collection
}

// NewEventRepository 创建事件存储
func NewEventRepository(gw storage.Gateway) *EventRepository {
	return &EventRepository{col: gw.Collection(storage.ColEvents)}
}

// List 列出 ownerID 的全部事件
func (r *EventRepository) List(ctx context.Context, ownerID string) ([]*model.Event, error) {
	events, err := access.FindAll[model.Event](ctx, r.col, access.OwnedBy(ownerID))
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		ev.Normalize()
	}
	return events, nil
}

// Insert 插入事件，ev.OwnerID 必须已设置
func (r *EventRepository) Insert(ctx context.Context, ev *model.Event) error {
	if ev.OwnerID == "" {
		return fmt.Errorf("insert event: empty owner")
	}
	if ev.ID.IsZero() {
		ev.ID = bson.NewObjectID()
	}
	return r.col.InsertOne(ctx, ev)
}

// Get 获取 ownerID 名下的事件
func (r *EventRepository) Get(ctx context.Context, ownerID, eventID string) (*model.Event, error) {
	f, err := access.Owned(ownerID, eventID)
	if err != nil {
		return nil, err
	}
	ev, err := access.FindOne[model.Event](ctx, r.col, f)
	if err != nil {
		return nil, err
	}
	return ev.Normalize(), nil
}

// Update 对 ownerID 名下的事件执行 update
func (r *EventRepository) Update(ctx context.Context, ownerID, eventID string, update bson.D) (*storage.UpdateResult, error) {
	f, err := access.Owned(ownerID, eventID)
	if err != nil {
		return nil, err
	}
	return access.UpdateOne(ctx, r.col, f, update)
}

// Delete 删除 ownerID 名下的事件
func (r *EventRepository) Delete(ctx context.Context, ownerID, eventID string) (*storage.DeleteResult, error) {
	f, err := access.Owned(ownerID, eventID)
	if err != nil {
		return nil, err
	}
	return access.DeleteOne(ctx, r.col, f)
}
