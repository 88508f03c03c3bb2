// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/foodshare/internal/auth"
	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/route"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, currentToken string, in auth.LoginInput) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン、ログアウト、ログイン中ユーザー取得のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig, m metrics.MetricsCollector) *AuthHandler {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: m,
	}
}

// sessionResponse はログイン中ユーザー（currentUser）のAPIレスポンス。
type sessionResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

func toSessionResponse(s *model.Session) sessionResponse {
	return sessionResponse{Email: s.Email, Role: string(s.Role), Name: s.Name}
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	User     sessionResponse `json:"user"`
	Redirect string          `json:"redirect"`
}

// Login はメールアドレス、パスワード、ロールで認証し、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.service.Login(r.Context(), middleware.SessionToken(r), in)
	if err != nil {
		h.metrics.RecordLogin(in.Role, false)
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordLogin(string(result.Session.Role), true)

	h.setSessionCookie(w, result.Session.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, loginResponse{
		User:     toSessionResponse(result.Session),
		Redirect: result.Redirect,
	})
}

// Logout はセッションを破棄してCookieをクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": route.PathLanding})
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	if session == nil {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      toSessionResponse(session),
		"dashboard": session.Role.Dashboard(),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
