package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MaxConstraintNameLength 约束名称上限
const MaxConstraintNameLength = 25

// ============================================================================
// ConstraintType - 约束类型
// ============================================================================

// ConstraintType 约束类型标识，决定约束的具体形状
type ConstraintType string

const (
	ConstraintTypeStage ConstraintType = "EventStageConstraint"
	ConstraintTypeColor ConstraintType = "EventColorConstraint"
	ConstraintTypeTime  ConstraintType = "EventTimeConstraint"
)

// ParseConstraintType 解析类型标识，同时接受短名 stage/color/time
func ParseConstraintType(s string) (ConstraintType, error) {
	switch ConstraintType(s) {
	case ConstraintTypeStage, ConstraintTypeColor, ConstraintTypeTime:
		return ConstraintType(s), nil
	}
	switch strings.ToLower(s) {
	case "stage":
		return ConstraintTypeStage, nil
	case "color":
		return ConstraintTypeColor, nil
	case "time":
		return ConstraintTypeTime, nil
	}
	return "", NewValidationError("constraint_type", "unknown constraint type %q", s)
}

// ============================================================================
// Constraint - 约束（封闭的可辨识联合）
// ============================================================================

// ConstraintHeader 所有约束共有的字段
type ConstraintHeader struct {
	ID   string         `bson:"_id" json:"id"`
	Name string         `bson:"name" json:"name"`
	Type ConstraintType `bson:"constraint_type" json:"constraint_type"`
}

// Constraint 约束，只有本包内的三种类型实现
type Constraint interface {
	Header() ConstraintHeader
	// Record 转为存储形式
	Record() ConstraintRecord
	sealed()
}

// StageConstraint 关联另一个事件的阶段
type StageConstraint struct {
	ConstraintHeader
	EventID string `json:"event_id"`
}

// ColorConstraint 颜色约束，Color 为 #rrggbb
type ColorConstraint struct {
	ConstraintHeader
	Color string `json:"color"`
}

// TimeConstraint 时间窗口约束
type TimeConstraint struct {
	ConstraintHeader
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func (c StageConstraint) Header() ConstraintHeader { return c.ConstraintHeader }
func (c ColorConstraint) Header() ConstraintHeader { return c.ConstraintHeader }
func (c TimeConstraint) Header() ConstraintHeader  { return c.ConstraintHeader }

func (StageConstraint) sealed() {}
func (ColorConstraint) sealed() {}
func (TimeConstraint) sealed()  {}

func (c StageConstraint) Record() ConstraintRecord {
	return ConstraintRecord{ConstraintHeader: c.ConstraintHeader, EventID: c.EventID}
}

func (c ColorConstraint) Record() ConstraintRecord {
	return ConstraintRecord{ConstraintHeader: c.ConstraintHeader, Color: c.Color}
}

func (c TimeConstraint) Record() ConstraintRecord {
	start, end := StoredTime(c.StartTime), StoredTime(c.EndTime)
	return ConstraintRecord{ConstraintHeader: c.ConstraintHeader, StartTime: &start, EndTime: &end}
}

// ============================================================================
// ConstraintRecord - 存储形式
// ============================================================================

// ConstraintRecord 约束在事件文档与 JSON 响应中的扁平形式，
// 只填充与 constraint_type 对应的字段
type ConstraintRecord struct {
	ConstraintHeader `bson:",inline"`
	EventID          string     `bson:"event_id,omitempty" json:"event_id,omitempty"`
	Color            string     `bson:"color,omitempty" json:"color,omitempty"`
	StartTime        *time.Time `bson:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime          *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
}

// Variant 还原为具体约束类型
func (r ConstraintRecord) Variant() (Constraint, error) {
	switch r.Type {
	case ConstraintTypeStage:
		return StageConstraint{ConstraintHeader: r.ConstraintHeader, EventID: r.EventID}, nil
	case ConstraintTypeColor:
		return ColorConstraint{ConstraintHeader: r.ConstraintHeader, Color: r.Color}, nil
	case ConstraintTypeTime:
		if r.StartTime == nil || r.EndTime == nil {
			return nil, fmt.Errorf("constraint %s: missing time window", r.ID)
		}
		return TimeConstraint{ConstraintHeader: r.ConstraintHeader, StartTime: *r.StartTime, EndTime: *r.EndTime}, nil
	}
	return nil, fmt.Errorf("constraint %s: unknown type %q", r.ID, r.Type)
}

// ============================================================================
// 解码
// ============================================================================

type stageInput struct {
	Name    string         `json:"name" validate:"required,max=25"`
	Type    ConstraintType `json:"constraint_type"`
	EventID string         `json:"event_id" validate:"required"`
}

type colorInput struct {
	Name  string         `json:"name" validate:"max=25"`
	Type  ConstraintType `json:"constraint_type"`
	Color string         `json:"color" validate:"required"`
}

type timeInput struct {
	Name      string         `json:"name" validate:"required,max=25"`
	Type      ConstraintType `json:"constraint_type"`
	StartTime time.Time      `json:"start_time" validate:"required"`
	EndTime   time.Time      `json:"end_time" validate:"required"`
}

func newHeader(kind ConstraintType, name string) ConstraintHeader {
	return ConstraintHeader{ID: bson.NewObjectID().Hex(), Name: name, Type: kind}
}

// DecodeConstraint 按 constraint_type 分派解码，形状与类型不一致时返回校验错误
func DecodeConstraint(raw []byte) (Constraint, error) {
	var head struct {
		Type string `json:"constraint_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &ValidationError{Field: "body", Message: err.Error()}
	}
	if head.Type == "" {
		return nil, NewValidationError("constraint_type", "field required")
	}
	kind, err := ParseConstraintType(head.Type)
	if err != nil {
		return nil, err
	}
	return DecodeConstraintAs(kind, raw, "")
}

// DecodeConstraintAs 按指定类型解码，忽略请求体中的 constraint_type；
// defaultEventID 在阶段约束未提供 event_id 时使用
func DecodeConstraintAs(kind ConstraintType, raw []byte, defaultEventID string) (Constraint, error) {
	switch kind {
	case ConstraintTypeStage:
		var in stageInput
		if err := DecodeStrict(raw, &in); err != nil {
			return nil, err
		}
		if in.EventID == "" {
			in.EventID = defaultEventID
		}
		if err := checkStruct(in); err != nil {
			return nil, err
		}
		return StageConstraint{ConstraintHeader: newHeader(kind, in.Name), EventID: in.EventID}, nil

	case ConstraintTypeColor:
		var in colorInput
		if err := DecodeStrict(raw, &in); err != nil {
			return nil, err
		}
		if err := checkStruct(in); err != nil {
			return nil, err
		}
		return NewColorConstraint(in.Name, in.Color)

	case ConstraintTypeTime:
		var in timeInput
		if err := DecodeStrict(raw, &in); err != nil {
			return nil, err
		}
		if err := checkStruct(in); err != nil {
			return nil, err
		}
		return TimeConstraint{ConstraintHeader: newHeader(kind, in.Name), StartTime: StoredTime(in.StartTime), EndTime: StoredTime(in.EndTime)}, nil
	}
	return nil, NewValidationError("constraint_type", "unknown constraint type %q", kind)
}

// NewColorConstraint 创建颜色约束；name 为空时使用颜色名称
func NewColorConstraint(name, color string) (ColorConstraint, error) {
	hex, err := NormalizeColor(color)
	if err != nil {
		return ColorConstraint{}, err
	}
	if name == "" {
		name = ColorName(hex)
	}
	if err := checkVar("name", name, fmt.Sprintf("max=%d", MaxConstraintNameLength)); err != nil {
		return ColorConstraint{}, err
	}
	return ColorConstraint{ConstraintHeader: newHeader(ConstraintTypeColor, name), Color: hex}, nil
}
