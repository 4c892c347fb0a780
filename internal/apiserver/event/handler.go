package event

import (
	"context"
	"io"
	"net/http"
	"regexp"

	"reminder/internal/apiserver/auth"
	"reminder/internal/apiserver/httperr"
	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/pkg/logging"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// eventIDPattern 路径中的事件 ID 只允许 hex 字符
var eventIDPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Handler 事件领域 HTTP 处理器
type Handler struct {
	svc *Service
}

// NewHandler 创建事件处理器
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册事件相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /events/{$}", h.List)
	mux.HandleFunc("POST /events/{$}", h.Create)
	mux.HandleFunc("GET /events/{event_id}", h.Get)
	mux.HandleFunc("DELETE /events/{event_id}", h.Delete)
	mux.HandleFunc("POST /events/{event_id}/set", h.Set)
	mux.HandleFunc("POST /events/{event_id}/set/{field}", h.SetField)
	mux.HandleFunc("POST /events/{event_id}/stage", h.SetStage)
	mux.HandleFunc("GET /events/{event_id}/tags", h.ListTags)
	mux.HandleFunc("POST /events/{event_id}/tags", h.AddTag)
	mux.HandleFunc("DELETE /events/{event_id}/tags", h.RemoveTag)
}

// ============================================================================
// 事件
// ============================================================================

// List 列出调用者的事件
// GET /events/
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	events, err := h.svc.List(r.Context(), user)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, events)
}

// Create 创建事件
// POST /events/
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	raw, ok := ReadBody(w, r)
	if !ok {
		return
	}
	var in model.EventInput
	if err := model.DecodeStrict(raw, &in); err != nil {
		httperr.Write(w, err)
		return
	}

	ev, err := h.svc.Create(r.Context(), user, &in)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, ev)
}

// Get 获取事件
// GET /events/{event_id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		return h.svc.Get(ctx, user, eventID)
	})
}

// Delete 删除事件，返回被删除的事件
// DELETE /events/{event_id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		return h.svc.Delete(ctx, user, eventID)
	})
}

// Set 整体替换请求体中出现的字段
// POST /events/{event_id}/set
func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		raw, err := readAll(w, r)
		if err != nil {
			return nil, err
		}
		patch, err := model.DecodeEventPatch(raw)
		if err != nil {
			return nil, err
		}
		return h.svc.Set(ctx, user, eventID, patch)
	})
}

// SetField 只修改一个字段
// POST /events/{event_id}/set/{field}
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		raw, err := readAll(w, r)
		if err != nil {
			return nil, err
		}
		patch, err := model.DecodeEventPatchField(raw, r.PathValue("field"))
		if err != nil {
			return nil, err
		}
		return h.svc.Set(ctx, user, eventID, patch)
	})
}

// SetStage 修改阶段，支持 ?stage= 或 {"stage": "..."}
// POST /events/{event_id}/stage
func (h *Handler) SetStage(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		stage := r.URL.Query().Get("stage")
		if stage == "" {
			raw, err := readAll(w, r)
			if err != nil {
				return nil, err
			}
			var body struct {
				Stage string `json:"stage"`
			}
			if len(raw) > 0 {
				if err := model.DecodeStrict(raw, &body); err != nil {
					return nil, err
				}
			}
			stage = body.Stage
		}
		if stage == "" {
			return nil, model.NewValidationError("stage", "field required")
		}
		return h.svc.SetStage(ctx, user, eventID, model.Stage(stage))
	})
}

// ============================================================================
// 标签
// ============================================================================

// ListTags 列出标签
// GET /events/{event_id}/tags
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		return h.svc.Tags(ctx, user, eventID)
	})
}

// AddTag 添加标签，返回最新的标签列表
// POST /events/{event_id}/tags
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		tag, err := tagFromRequest(w, r)
		if err != nil {
			return nil, err
		}
		return h.svc.AddTag(ctx, user, eventID, tag)
	})
}

// RemoveTag 删除标签，返回最新的标签列表
// DELETE /events/{event_id}/tags
func (h *Handler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	h.withEvent(w, r, func(ctx context.Context, user *model.User, eventID string) (any, error) {
		tag, err := tagFromRequest(w, r)
		if err != nil {
			return nil, err
		}
		return h.svc.RemoveTag(ctx, user, eventID, tag)
	})
}

// ============================================================================
// 工具函数
// ============================================================================

// withEvent 统一处理认证用户、路径中的事件 ID 与错误输出
func (h *Handler) withEvent(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, user *model.User, eventID string) (any, error)) {
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	eventID, ok := PathEventID(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithEventID(r.Context(), eventID)

	result, err := fn(ctx, user, eventID)
	if err != nil {
		httperr.Write(w, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, result)
}

// PathEventID 读取并校验路径参数 event_id；格式非法时按不存在处理
func PathEventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("event_id")
	if !eventIDPattern.MatchString(id) {
		httperr.Write(w, storage.ErrNotFound)
		return "", false
	}
	return id, true
}

// ReadBody 读取请求体，失败时写出 422
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := readAll(w, r)
	if err != nil {
		httperr.Write(w, err)
		return nil, false
	}
	return raw, true
}

func readAll(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, model.NewValidationError("body", "unreadable request body")
	}
	return raw, nil
}

// tagFromRequest 优先读取 ?tag=，否则读取 {"tag": "..."}
func tagFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if tag := r.URL.Query().Get("tag"); tag != "" {
		return tag, nil
	}
	raw, err := readAll(w, r)
	if err != nil {
		return "", err
	}
	var body model.Tag
	if err := model.DecodeStrict(raw, &body); err != nil {
		return "", err
	}
	if body.Tag == "" {
		return "", model.NewValidationError("tag", "field required")
	}
	return body.Tag, nil
}
