// Package model 定义核心数据模型
//
// event.go 包含事件相关的数据模型定义：
//   - Event：用户事件（数据库存储）
//   - EventInput：创建请求体
//   - EventPatch：部分更新请求体
//   - Stage：事件阶段枚举
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// 数量与长度上限
const (
	MaxNameLength        = 64
	MaxDescriptionLength = 256
	MaxTags              = 10
	MaxTagLength         = 64
	MaxConstraints       = 5
)

// ============================================================================
// Stage - 事件阶段
// ============================================================================

// Stage 事件阶段
type Stage string

const (
	StageStarted    Stage = "started"
	StageInProgress Stage = "in_progress"
	StageComplete   Stage = "complete"
)

// ParseStage 解析阶段字符串
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageStarted, StageInProgress, StageComplete:
		return st, nil
	}
	return "", NewValidationError("stage", "must be one of: %s, %s, %s",
		StageStarted, StageInProgress, StageComplete)
}

// ============================================================================
// Event - 事件
// ============================================================================

// Tag 标签
type Tag struct {
	Tag string `bson:"tag" json:"tag"`
}

// EventTime 时间信息
type EventTime struct {
	StartTime time.Time `bson:"start_time" json:"start_time" validate:"required"`
	EndTime   time.Time `bson:"end_time" json:"end_time" validate:"required"`
	AllDay    bool      `bson:"all_day" json:"all_day"`
}

// StoredTime 存储精度：UTC，毫秒
//
// BSON 日期只保留毫秒且读回为 UTC，写入前统一截断，返回值与重新读取的结果一致
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Stored 返回按存储精度截断后的时间信息
func (td EventTime) Stored() EventTime {
	td.StartTime = StoredTime(td.StartTime)
	td.EndTime = StoredTime(td.EndTime)
	return td
}

// Presentation 展示信息
type Presentation struct {
	Color string `bson:"color" json:"color"`
}

// Event 用户事件，owner_id 为所属用户 ID 的 hex 形式
type Event struct {
	ID           bson.ObjectID      `bson:"_id,omitempty" json:"id"`
	OwnerID      string             `bson:"owner_id" json:"owner_id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Tags         []Tag              `bson:"tags" json:"tags"`
	TimeDetails  EventTime          `bson:"time_details" json:"time_details"`
	Presentation Presentation       `bson:"presentation" json:"presentation"`
	Stage        Stage              `bson:"stage" json:"stage"`
	Constraints  []ConstraintRecord `bson:"constraints" json:"constraints"`
}

// HasTag 是否已包含标签（区分大小写）
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t.Tag == tag {
			return true
		}
	}
	return false
}

// normalize 保证切片非 nil，序列化时输出 [] 而不是 null
func (e *Event) normalize() {
	if e.Tags == nil {
		e.Tags = []Tag{}
	}
	if e.Constraints == nil {
		e.Constraints = []ConstraintRecord{}
	}
}

// Normalize 读取后修正空字段
func (e *Event) Normalize() *Event {
	e.normalize()
	return e
}

// ============================================================================
// 字段校验（创建与更新共用）
// ============================================================================

// ValidateName 名称 1..64 字符
func ValidateName(name string) error {
	return checkVar("name", name, fmt.Sprintf("min=1,max=%d", MaxNameLength))
}

// ValidateDescription 描述最多 256 字符
func ValidateDescription(desc string) error {
	return checkVar("description", desc, fmt.Sprintf("max=%d", MaxDescriptionLength))
}

// ValidateTag 单个标签 1..64 字符
func ValidateTag(tag string) error {
	return checkVar("tag", tag, fmt.Sprintf("min=1,max=%d", MaxTagLength))
}

// ValidateTags 最多 10 个，互不重复
func ValidateTags(tags []Tag) error {
	if len(tags) > MaxTags {
		return NewValidationError("tags", "at most %d tags are allowed", MaxTags)
	}
	seen := make(map[string]struct{}, len(tags))
	for i, t := range tags {
		if err := ValidateTag(t.Tag); err != nil {
			return withFieldPrefix(err, fmt.Sprintf("tags[%d]", i))
		}
		if _, dup := seen[t.Tag]; dup {
			return NewValidationError("tags", "duplicate tag %q", t.Tag)
		}
		seen[t.Tag] = struct{}{}
	}
	return nil
}

// ValidateTimeDetails 开始与结束时间必填
func ValidateTimeDetails(td EventTime) error {
	if err := checkStruct(td); err != nil {
		return withFieldPrefix(err, "time_details")
	}
	return nil
}

// NormalizePresentation 颜色规范化为 #rrggbb
func NormalizePresentation(p Presentation) (Presentation, error) {
	c, err := NormalizeColor(p.Color)
	if err != nil {
		return Presentation{}, withFieldPrefix(err, "presentation")
	}
	return Presentation{Color: c}, nil
}

// ============================================================================
// EventInput - 创建请求
// ============================================================================

// EventInput POST /events/ 请求体，owner_id 与 stage 由服务端决定
type EventInput struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Tags         []Tag             `json:"tags"`
	TimeDetails  EventTime         `json:"time_details"`
	Presentation Presentation      `json:"presentation"`
	Constraints  []json.RawMessage `json:"constraints,omitempty"`
}

// Build 校验输入并生成待插入的事件
func (in *EventInput) Build(ownerID string) (*Event, error) {
	if err := ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(in.Description); err != nil {
		return nil, err
	}
	if err := ValidateTags(in.Tags); err != nil {
		return nil, err
	}
	if err := ValidateTimeDetails(in.TimeDetails); err != nil {
		return nil, err
	}
	pres, err := NormalizePresentation(in.Presentation)
	if err != nil {
		return nil, err
	}
	if len(in.Constraints) > MaxConstraints {
		return nil, NewValidationError("constraints", "too many constraints")
	}

	records := make([]ConstraintRecord, 0, len(in.Constraints))
	for i, raw := range in.Constraints {
		c, err := DecodeConstraint(raw)
		if err != nil {
			return nil, withFieldPrefix(err, fmt.Sprintf("constraints[%d]", i))
		}
		records = append(records, c.Record())
	}

	ev := &Event{
		ID:           bson.NewObjectID(),
		OwnerID:      ownerID,
		Name:         in.Name,
		Description:  in.Description,
		Tags:         append([]Tag(nil), in.Tags...),
		TimeDetails:  in.TimeDetails.Stored(),
		Presentation: pres,
		Stage:        StageStarted,
		Constraints:  records,
	}
	ev.normalize()
	return ev, nil
}

// ============================================================================
// EventPatch - 部分更新
// ============================================================================

// 可更新字段
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldTags         = "tags"
	FieldTimeDetails  = "time_details"
	FieldPresentation = "presentation"
	FieldStage        = "stage"
)

// EventPatch 部分更新请求体，nil 表示不修改
//
// owner_id、_id、constraints 不在其中，解码时作为未知字段被拒绝
type EventPatch struct {
	Name         *string       `json:"name,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Tags         *[]Tag        `json:"tags,omitempty"`
	TimeDetails  *EventTime    `json:"time_details,omitempty"`
	Presentation *Presentation `json:"presentation,omitempty"`
	Stage        *Stage        `json:"stage,omitempty"`
}

// DecodeEventPatch 解码并校验部分更新
func DecodeEventPatch(raw []byte) (*EventPatch, error) {
	var p EventPatch
	if err := DecodeStrict(raw, &p); err != nil {
		return nil, err
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Fields 返回出现的字段名
func (p *EventPatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, FieldName)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.Tags != nil {
		fields = append(fields, FieldTags)
	}
	if p.TimeDetails != nil {
		fields = append(fields, FieldTimeDetails)
	}
	if p.Presentation != nil {
		fields = append(fields, FieldPresentation)
	}
	if p.Stage != nil {
		fields = append(fields, FieldStage)
	}
	return fields
}

// Only 仅保留指定字段；字段名非法或该字段未出现时返回错误
func (p *EventPatch) Only(field string) (*EventPatch, error) {
	out := &EventPatch{}
	switch field {
	case FieldName:
		out.Name = p.Name
	case FieldDescription:
		out.Description = p.Description
	case FieldTags:
		out.Tags = p.Tags
	case FieldTimeDetails:
		out.TimeDetails = p.TimeDetails
	case FieldPresentation:
		out.Presentation = p.Presentation
	case FieldStage:
		out.Stage = p.Stage
	default:
		return nil, NewValidationError("field", "unknown field %q", field)
	}
	if len(out.Fields()) == 0 {
		return nil, NewValidationError(field, "field required")
	}
	return out, nil
}

// Normalize 校验出现的字段，规范化颜色，至少需要一个字段
func (p *EventPatch) Normalize() error {
	if len(p.Fields()) == 0 {
		return NewValidationError("body", "at least one field is required")
	}
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := ValidateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if err := ValidateTags(*p.Tags); err != nil {
			return err
		}
		tags := append([]Tag{}, (*p.Tags)...)
		p.Tags = &tags
	}
	if p.TimeDetails != nil {
		if err := ValidateTimeDetails(*p.TimeDetails); err != nil {
			return err
		}
		td := p.TimeDetails.Stored()
		p.TimeDetails = &td
	}
	if p.Presentation != nil {
		pres, err := NormalizePresentation(*p.Presentation)
		if err != nil {
			return err
		}
		p.Presentation = &pres
	}
	if p.Stage != nil {
		st, err := ParseStage(string(*p.Stage))
		if err != nil {
			return err
		}
		p.Stage = &st
	}
	return nil
}

// SetDoc 生成 $set 的字段文档
func (p *EventPatch) SetDoc() bson.D {
	var d bson.D
	if p.Name != nil {
		d = append(d, bson.E{Key: FieldName, Value: *p.Name})
	}
	if p.Description != nil {
		d = append(d, bson.E{Key: FieldDescription, Value: *p.Description})
	}
	if p.Tags != nil {
		d = append(d, bson.E{Key: FieldTags, Value: *p.Tags})
	}
	if p.TimeDetails != nil {
		d = append(d, bson.E{Key: FieldTimeDetails, Value: *p.TimeDetails})
	}
	if p.Presentation != nil {
		d = append(d, bson.E{Key: FieldPresentation, Value: *p.Presentation})
	}
	if p.Stage != nil {
		d = append(d, bson.E{Key: FieldStage, Value: *p.Stage})
	}
	return d
}

// Update 生成完整的更新文档
func (p *EventPatch) Update() bson.D {
	return bson.D{{Key: "$set", Value: p.SetDoc()}}
}

// ApplyTo 把更新合并到已读取的事件上，用于返回合并后的视图
func (p *EventPatch) ApplyTo(e *Event) {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Tags != nil {
		e.Tags = append([]Tag{}, (*p.Tags)...)
	}
	if p.TimeDetails != nil {
		e.TimeDetails = *p.TimeDetails
	}
	if p.Presentation != nil {
		e.Presentation = *p.Presentation
	}
	if p.Stage != nil {
		e.Stage = *p.Stage
	}
}

// DecodeEventPatchField 解码只修改单个字段的请求体，其他字段被忽略
func DecodeEventPatchField(raw []byte, field string) (*EventPatch, error) {
	var p EventPatch
	if err := DecodeStrict(raw, &p); err != nil {
		return nil, err
	}
	only, err := p.Only(field)
	if err != nil {
		return nil, err
	}
	if err := only.Normalize(); err != nil {
		return nil, err
	}
	return only, nil
}
