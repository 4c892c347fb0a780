// Package constraint 事件约束 HTTP 处理
//
// 通用入口按 constraint_type 分派；/constraint/{kind} 入口忽略请求体中的类型，
// 强制使用路径指定的类型。
package constraint

import (
	"context"
	"net/http"

	"reminder/internal/apiserver/auth"
	"reminder/internal/apiserver/event"
	"reminder/internal/apiserver/httperr"
	"reminder/internal/shared/model"
	"reminder/pkg/logging"
)

// Service 约束相关的事件服务操作（*event.Service 实现）
type Service interface {
	Constraints(ctx context.Context, user *model.User, eventID string) ([]model.ConstraintRecord, error)
	AddConstraint(ctx context.Context, user *model.User, eventID string, c model.Constraint) (*model.ConstraintRecord, error)
	DeleteConstraint(ctx context.Context, user *model.User, eventID, constraintID string) error
}

var _ Service = (*event.Service)(nil)

// Handler 约束 HTTP 处理器
type Handler struct {
	svc Service
}

// NewHandler 创建约束处理器
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册约束相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /events/{event_id}/constraint", h.List)
	mux.HandleFunc("POST /events/{event_id}/constraint", h.Add)
	mux.HandleFunc("POST /events/{event_id}/constraint/{kind}", h.AddKind)
	mux.HandleFunc("DELETE /events/{event_id}/constraint/{constraint_id}", h.Delete)
}

// kinds 路径中的类型名
var kinds = map[string]model.ConstraintType{
	"stage": model.ConstraintTypeStage,
	"color": model.ConstraintTypeColor,
	"time":  model.ConstraintTypeTime,
}

// List 列出约束
// GET /events/{event_id}/constraint
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, eventID, ok := prepare(w, r)
	if !ok {
		return
	}
	records, err := h.svc.Constraints(r.Context(), user, eventID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, records)
}

// Add 按 constraint_type 分派并追加约束
// POST /events/{event_id}/constraint
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	user, eventID, ok := prepare(w, r)
	if !ok {
		return
	}
	raw, ok := event.ReadBody(w, r)
	if !ok {
		return
	}
	c, err := model.DecodeConstraint(raw)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	h.add(w, r, user, eventID, c)
}

// AddKind 追加指定类型的约束；阶段约束的 event_id 缺省为当前事件
// POST /events/{event_id}/constraint/{kind}
func (h *Handler) AddKind(w http.ResponseWriter, r *http.Request) {
	user, eventID, ok := prepare(w, r)
	if !ok {
		return
	}
	kind, known := kinds[r.PathValue("kind")]
	if !known {
		httperr.Write(w, model.NewValidationError("kind", "unknown constraint type %q", r.PathValue("kind")))
		return
	}
	raw, ok := event.ReadBody(w, r)
	if !ok {
		return
	}
	c, err := model.DecodeConstraintAs(kind, raw, eventID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	h.add(w, r, user, eventID, c)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request, user *model.User, eventID string, c model.Constraint) {
	ctx := logging.ContextWithEventID(r.Context(), eventID)
	rec, err := h.svc.AddConstraint(ctx, user, eventID, c)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, rec)
}

type deleteResponse struct {
	Error        string `json:"error"`
	Detail       string `json:"detail"`
	EventID      string `json:"event_id"`
	ConstraintID string `json:"constraint_id"`
}

// Delete 删除约束（未实现）：事件归属校验通过后返回 501 并回显 ID，不修改数据
// DELETE /events/{event_id}/constraint/{constraint_id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, eventID, ok := prepare(w, r)
	if !ok {
		return
	}
	constraintID := r.PathValue("constraint_id")
	err := h.svc.DeleteConstraint(r.Context(), user, eventID, constraintID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case httperr.Status(err) == http.StatusNotImplemented:
		httperr.WriteJSON(w, http.StatusNotImplemented, deleteResponse{
			Error:        httperr.MsgNotImplemented,
			Detail:       "constraint deletion is not implemented",
			EventID:      eventID,
			ConstraintID: constraintID,
		})
	default:
		httperr.Write(w, err)
	}
}

func prepare(w http.ResponseWriter, r *http.Request) (*model.User, string, bool) {
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return nil, "", false
	}
	eventID, ok := event.PathEventID(w, r)
	if !ok {
		return nil, "", false
	}
	return user, eventID, true
}
