package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/route"
)

// NewRequireSession はログイン済みのリクエストのみを通すミドルウェアを返す。
func NewRequireSession() func(next http.Handler) http.Handler {
	return NewRoleGuard("")
}

// NewRoleGuard は指定ロールのセッションのみを通すミドルウェアを返す。
// roleが空の場合はロールを問わない。
// 未ログインは401、ロール不一致は403を返す。
func NewRoleGuard(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if !route.Allowed(role, session) {
				slog.Warn("role guard rejected request",
					slog.String("path", r.URL.Path),
					slog.String("required_role", string(role)),
					slog.String("role", string(session.Role)),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
