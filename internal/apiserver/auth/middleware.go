package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reminder/internal/apiserver/httperr"
	"reminder/internal/shared/model"
	"reminder/pkg/logging"
)

var errMissingToken = errors.New("missing bearer token")

// 免认证路由（精确匹配路径）
var publicPaths = map[string]bool{
	"/token":       true,
	"/auth/signup": true,
	"/health":      true,
	"/metrics":     true,
}

func isPublicRoute(path string) bool {
	return publicPaths[path]
}

// Observer 认证失败回调（指标）
type Observer interface {
	AuthFailed(reason string)
}

type noopObserver struct{}

func (noopObserver) AuthFailed(string) {}

// bearerToken 提取 Authorization: Bearer <token>
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: %w", model.ErrUnauthorized, errMissingToken)
	}
	return strings.TrimSpace(token), nil
}

// Middleware 创建 JWT 认证中间件
//
// 公开路由直接放行；其余请求必须携带有效令牌且用户未被禁用，
// 通过后用户注入 context（GetAuthUser）。
func Middleware(resolver *Resolver, obs Observer, logger *logging.Logger) func(http.Handler) http.Handler {
	if obs == nil {
		obs = noopObserver{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 公开路由：直接放行
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := bearerToken(r)
			if err == nil {
				var user *model.User
				user, err = resolver.Current(r.Context(), token)
				if err == nil {
					ctx := WithAuthUser(r.Context(), user)
					ctx = logging.ContextWithUserID(ctx, user.OwnerID())
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			reason := FailureReason(err)
			obs.AuthFailed(reason)
			logger.WithContext(r.Context()).AuthFailureLog(reason, r.URL.Path)
			httperr.Write(w, err)
		})
	}
}

// RequireUser 从 context 取出认证用户；中间件之外调用时写出 401
func RequireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user := GetAuthUser(r.Context())
	if user == nil {
		httperr.Write(w, model.ErrUnauthorized)
		return nil, false
	}
	return user, true
}
