package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"reminder/internal/apiserver/httperr"
	"reminder/internal/shared/model"
	"reminder/internal/shared/storage"
	"reminder/pkg/logging"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// UserStore 用户存储接口
type UserStore interface {
	UserLookup
	Create(ctx context.Context, user *model.User) error
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store  UserStore
	tokens *Issuer
	cfg    Config
	logger *logging.Logger

	// 用户不存在时用 dummyHash 做一次同等代价的比较，两条失败路径耗时一致
	dummyHash     string
	checkPassword func(password, hash string) bool
}

// dummyPassword 只用于生成 dummyHash
const dummyPassword = "reminder-login-timing-guard"

// NewHandler 创建认证处理器
func NewHandler(store UserStore, tokens *Issuer, cfg Config, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	cfg = cfg.withDefaults()
	dummy, err := HashPassword(dummyPassword, cfg.BcryptCost)
	if err != nil {
		logger.WithError(err).Error("generate dummy password hash failed")
	}
	return &Handler{
		store:         store,
		tokens:        tokens,
		cfg:           cfg,
		logger:        logger,
		dummyHash:     dummy,
		checkPassword: CheckPassword,
	}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /token", h.Login)
	mux.HandleFunc("POST /auth/signup", h.SignUp)
	mux.HandleFunc("GET /users/me/{$}", h.Me)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

const msgIncorrectLogin = "Incorrect username or password"

// ============================================================================
// Handlers
// ============================================================================

// Login 用户名密码换取访问令牌，支持表单与 JSON
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	user, err := h.store.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, storage.ErrNotFound) {
		h.checkPassword(req.Password, h.dummyHash)
		httperr.WriteUnauthorized(w, msgIncorrectLogin)
		return
	}
	if err != nil {
		httperr.Write(w, err)
		return
	}
	if !h.checkPassword(req.Password, user.HashedPassword) {
		httperr.WriteUnauthorized(w, msgIncorrectLogin)
		return
	}

	token, err := h.tokens.Issue(user.Username, h.cfg.LoginTokenTTL)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	h.logger.WithContext(r.Context()).WithUserID(user.OwnerID()).Info("user logged in")
	httperr.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// SignUp 用户注册，只保存密码哈希
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httperr.Write(w, model.NewValidationError("body", "unreadable request body"))
		return
	}
	var in model.SignUpInput
	if err := model.DecodeStrict(raw, &in); err != nil {
		httperr.Write(w, err)
		return
	}
	if err := in.Validate(); err != nil {
		httperr.Write(w, err)
		return
	}

	hash, err := HashPassword(in.Password, h.cfg.BcryptCost)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	user := &model.User{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: hash,
	}
	if err := h.store.Create(r.Context(), user); err != nil {
		httperr.Write(w, err)
		return
	}

	h.logger.WithContext(r.Context()).WithUserID(user.OwnerID()).Info("user signed up", "username", user.Username)
	httperr.WriteJSON(w, http.StatusOK, model.SignUpResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	})
}

// Me 获取当前用户信息
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := RequireUser(w, r)
	if !ok {
		return
	}
	httperr.WriteJSON(w, http.StatusOK, user)
}

// ============================================================================
// 工具函数
// ============================================================================

// decodeLogin 按 Content-Type 解析登录请求：JSON 或表单（OAuth2 password flow）
func decodeLogin(r *http.Request) (*loginRequest, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return nil, &model.ValidationError{Field: "body", Message: err.Error()}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, &model.ValidationError{Field: "body", Message: err.Error()}
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	if req.Username == "" {
		return nil, model.NewValidationError("username", "field required")
	}
	if req.Password == "" {
		return nil, model.NewValidationError("password", "field required")
	}
	return &req, nil
}
