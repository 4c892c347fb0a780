package server

import (
	"net/http"

	"reminder/internal/apiserver/auth"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 公开:
//   - GET  /health          - 健康检查（Ping 存储与缓存）
//   - GET  /metrics         - Prometheus 指标
//   - POST /token           - 用户名密码换取令牌
//   - POST /auth/signup     - 注册
//
// 用户:
//   - GET  /users/me/       - 当前用户
//
// 事件 (Event):
//   - GET    /events/                      - 列出事件
//   - POST   /events/                      - 创建事件
//   - GET    /events/{event_id}            - 获取事件
//   - DELETE /events/{event_id}            - 删除事件
//   - POST   /events/{event_id}/set        - 替换多个字段
//   - POST   /events/{event_id}/set/{field} - 替换单个字段
//   - POST   /events/{event_id}/stage      - 修改阶段
//   - GET/POST/DELETE /events/{event_id}/tags - 标签
//
// 约束 (Constraint):
//   - GET    /events/{event_id}/constraint                 - 列出约束
//   - POST   /events/{event_id}/constraint                 - 按类型追加
//   - POST   /events/{event_id}/constraint/{kind}          - 追加指定类型
//   - DELETE /events/{event_id}/constraint/{constraint_id} - 删除（未实现）
//
// 中间件顺序（外到内）：CORS → 访问日志/trace_id → 指标 → 认证 → 路由
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", h.metrics.Handler())

	for _, routes := range h.newRoutes() {
		routes.RegisterRoutes(mux)
	}

	// 认证失败同时计入指标
	authedHandler := auth.Middleware(h.resolver, h.metrics, h.logger)(mux)

	// 应用指标中间件
	apiHandler := h.metrics.MetricsMiddleware(mux, authedHandler)

	return corsMiddleware(requestLogMiddleware(h.logger, apiHandler))
}
