// Package server 路由配置与核心基础设施
//
// 文件组织：
//   - common.go: Handler 定义、依赖装配、健康检查
//   - handler.go: 路由与中间件链
//   - middleware.go: 访问日志、trace_id、CORS
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"reminder/internal/apiserver/auth"
	"reminder/internal/apiserver/constraint"
	"reminder/internal/apiserver/event"
	"reminder/internal/apiserver/httperr"
	"reminder/internal/shared/cache"
	"reminder/internal/shared/storage"
	"reminder/internal/shared/storage/repository"
	"reminder/pkg/logging"
)

// healthTimeout 健康检查中单个依赖的 Ping 超时
const healthTimeout = 2 * time.Second

// Deps 构造 Handler 所需的依赖
type Deps struct {
	Gateway storage.Gateway // 已经过 storage.Instrument 包装
	Cache   cache.Cache     // 可为 nil
	Auth    auth.Config
	Metrics *Metrics // 可为 nil，nil 时内部创建
	Logger  *logging.Logger
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 持有存储、缓存、认证组件
//   - 组装各领域包的路由
//   - 健康检查与指标导出
type Handler struct {
	gw      storage.Gateway
	cache   cache.Cache
	store   *repository.Store
	authCfg auth.Config

	issuer   *auth.Issuer
	resolver *auth.Resolver
	events   *event.Service

	metrics *Metrics
	logger  *logging.Logger
}

// NewHandler 创建 Handler 实例；JWT 配置非法时返回错误
func NewHandler(deps Deps) (*Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics("reminder")
	}

	issuer, err := auth.NewIssuer(deps.Auth)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore(deps.Gateway)
	var userCache cache.UserCache
	if deps.Cache != nil {
		userCache = deps.Cache
	}

	return &Handler{
		gw:       deps.Gateway,
		cache:    deps.Cache,
		store:    store,
		authCfg:  deps.Auth,
		issuer:   issuer,
		resolver: auth.NewResolver(issuer, store.Users, userCache, logger),
		events:   event.NewService(store.Events, logger),
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// NewQueryHook 存储查询回调：记录指标与数据库日志
func NewQueryHook(metrics *Metrics, logger *logging.Logger) storage.QueryHook {
	return func(ctx context.Context, operation, collection string, duration time.Duration, err error) {
		metrics.RecordDBQuery(ctx, operation, collection, duration, err)
		if !isQueryFailure(err) {
			err = nil
		}
		logger.WithContext(ctx).DBQueryLog(operation, collection, duration, err)
	}
}

// newRoutes 各领域处理器
func (h *Handler) newRoutes() []interface{ RegisterRoutes(*http.ServeMux) } {
	return []interface{ RegisterRoutes(*http.ServeMux) }{
		auth.NewHandler(h.store.Users, h.issuer, h.authCfg, h.logger),
		event.NewHandler(h.events),
		constraint.NewHandler(h.events),
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache,omitempty"`
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 存储不可达时返回 503；缓存不可达只降级，不影响状态码。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.gw.Ping(ctx); err != nil {
		h.logger.WithContext(ctx).WithError(err).Warn("health: store ping failed")
		resp.Status, resp.Store = "unavailable", "unavailable"
		status = http.StatusServiceUnavailable
	}
	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.WithContext(ctx).WithError(err).Warn("health: cache ping failed")
			resp.Cache = "unavailable"
		}
	}
	httperr.WriteJSON(w, status, resp)
}

// generateID 生成带前缀的唯一标识符
//
// 使用加密安全的随机数生成 6 字节（12 个十六进制字符）的 ID，
// 格式为：prefix-xxxxxxxxxxxx；随机源不可用时退化为 ObjectID
func generateID(prefix string) string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return prefix + "-" + bson.NewObjectID().Hex()
	}
	return prefix + "-" + hex.EncodeToString(b)
}
