package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register は登録フォームを検証し、ユーザーを追加する。
	Register(ctx context.Context, in user.RegisterInput) (*user.RegisterResult, error)
}

// UserHandler はユーザー登録のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
	metrics metrics.MetricsCollector
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, m metrics.MetricsCollector) *UserHandler {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &UserHandler{
		service: service,
		metrics: m,
	}
}

// registerResponse は登録成功時のレスポンス。
// クライアントはredirectAfterMs経過後にredirectへ遷移する。
type registerResponse struct {
	User            userResponse `json:"user"`
	Redirect        string       `json:"redirect"`
	RedirectAfterMs int64        `json:"redirectAfterMs"`
}

// Register は新規ユーザーを登録する。
// POST /api/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		if isConcurrentUpdate(err) {
			h.metrics.RecordConflict("register")
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordRegistration(string(result.User.Role))

	writeJSON(w, http.StatusCreated, registerResponse{
		User:            toUserResponse(result.User),
		Redirect:        result.Redirect,
		RedirectAfterMs: result.RedirectAfterMs,
	})
}
