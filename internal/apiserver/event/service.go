// Package event 事件领域：事件、标签、约束的读写编排
//
// 每个修改操作都按同一顺序执行：
//  1. 按 (owner_id, _id) 取出当前文档，不存在或不属于调用者时返回 storage.ErrNotFound
//  2. 在取出的文档上检查数量上限
//  3. 执行写入（同样按 owner 限定）
//  4. 返回合并后的视图
//
// 第 1 步与第 3 步之间没有版本校验：并发删除与更新同一事件时，
// 更新可能返回 ErrNotFound，数量上限也可能被并发写入突破一个元素。
package event

import (
	"context"

	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/pkg/logging"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store 按所有者限定的事件存储
type Store interface {
	List(ctx context.Context, ownerID string) ([]*model.Event, error)
	Insert(ctx context.Context, ev *model.Event) error
	Get(ctx context.Context, ownerID, eventID string) (*model.Event, error)
	Update(ctx context.Context, ownerID, eventID string, update bson.D) (*storage.UpdateResult, error)
	Delete(ctx context.Context, ownerID, eventID string) (*storage.DeleteResult, error)
}

// Service 事件服务
type Service struct {
	events Store
	logger *logging.Logger
}

// NewService 创建事件服务
func NewService(events Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{events: events, logger: logger}
}

func (s *Service) log(ctx context.Context, eventID string) *logging.Logger {
	return s.logger.WithContext(ctx).WithEventID(eventID)
}

// ============================================================================
// 事件
// ============================================================================

// List 列出用户的全部事件
func (s *Service) List(ctx context.Context, user *model.User) ([]*model.Event, error) {
	return s.events.List(ctx, user.OwnerID())
}

// Create 创建事件，owner_id 取自调用者，stage 固定为 started
func (s *Service) Create(ctx context.Context, user *model.User, in *model.EventInput) (*model.Event, error) {
	ev, err := in.Build(user.OwnerID())
	if err != nil {
		return nil, err
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		return nil, err
	}
	s.log(ctx, ev.ID.Hex()).Info("event created")
	return ev, nil
}

// Get 获取事件
func (s *Service) Get(ctx context.Context, user *model.User, eventID string) (*model.Event, error) {
	return s.events.Get(ctx, user.OwnerID(), eventID)
}

// Delete 删除事件，返回删除前的文档
func (s *Service) Delete(ctx context.Context, user *model.User, eventID string) (*model.Event, error) {
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.Delete(ctx, user.OwnerID(), eventID); err != nil {
		return nil, err
	}
	s.log(ctx, eventID).Info("event deleted")
	return ev, nil
}

// Set 整体替换 patch 中出现的字段
func (s *Service) Set(ctx context.Context, user *model.User, eventID string, patch *model.EventPatch) (*model.Event, error) {
	if err := patch.Normalize(); err != nil {
		return nil, err
	}
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.Update(ctx, user.OwnerID(), eventID, patch.Update()); err != nil {
		return nil, err
	}
	patch.ApplyTo(ev)
	return ev, nil
}

// SetStage 修改阶段
func (s *Service) SetStage(ctx context.Context, user *model.User, eventID string, stage model.Stage) (*model.Event, error) {
	return s.Set(ctx, user, eventID, &model.EventPatch{Stage: &stage})
}

// ============================================================================
// 标签
// ============================================================================

// Tags 列出事件的标签
func (s *Service) Tags(ctx context.Context, user *model.User, eventID string) ([]model.Tag, error) {
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	return ev.Tags, nil
}

// AddTag 添加标签；已存在时不做修改
func (s *Service) AddTag(ctx context.Context, user *model.User, eventID, tag string) ([]model.Tag, error) {
	if err := model.ValidateTag(tag); err != nil {
		return nil, err
	}
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	if ev.HasTag(tag) {
		return ev.Tags, nil
	}
	if len(ev.Tags) >= model.MaxTags {
		return nil, model.NewValidationError("tags", "too many tags")
	}

	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "tags", Value: model.Tag{Tag: tag}}}}}
	if _, err := s.events.Update(ctx, user.OwnerID(), eventID, update); err != nil {
		return nil, err
	}
	return append(ev.Tags, model.Tag{Tag: tag}), nil
}

// RemoveTag 删除标签；不存在时不做修改
func (s *Service) RemoveTag(ctx context.Context, user *model.User, eventID, tag string) ([]model.Tag, error) {
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	if !ev.HasTag(tag) {
		return ev.Tags, nil
	}

	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "tags", Value: bson.D{{Key: "tag", Value: tag}}}}}}
	if _, err := s.events.Update(ctx, user.OwnerID(), eventID, update); err != nil {
		return nil, err
	}
	kept := make([]model.Tag, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		if t.Tag != tag {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

// ============================================================================
// 约束
// ============================================================================

// Constraints 列出事件的约束
func (s *Service) Constraints(ctx context.Context, user *model.User, eventID string) ([]model.ConstraintRecord, error) {
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	return ev.Constraints, nil
}

// AddConstraint 追加约束，返回存储形式
func (s *Service) AddConstraint(ctx context.Context, user *model.User, eventID string, c model.Constraint) (*model.ConstraintRecord, error) {
	ev, err := s.events.Get(ctx, user.OwnerID(), eventID)
	if err != nil {
		return nil, err
	}
	if len(ev.Constraints) >= model.MaxConstraints {
		return nil, model.NewValidationError("constraints", "too many constraints")
	}

	rec := c.Record()
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "constraints", Value: rec}}}}
	if _, err := s.events.Update(ctx, user.OwnerID(), eventID, update); err != nil {
		return nil, err
	}
	s.log(ctx, eventID).Info("constraint added", "constraint_id", rec.ID, "constraint_type", string(rec.Type))
	return &rec, nil
}

// DeleteConstraint 校验事件归属后返回 model.ErrNotImplemented，不修改任何数据
//
// TODO: 实现为 $pull {constraints: {_id: constraintID}}，约束不存在时返回 ErrNotFound
func (s *Service) DeleteConstraint(ctx context.Context, user *model.User, eventID, constraintID string) error {
	if _, err := s.events.Get(ctx, user.OwnerID(), eventID); err != nil {
		return err
	}
	return model.ErrNotImplemented
}
