package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/foodshare/internal/admin"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/model"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	Overview(ctx context.Context, session *model.Session) (*admin.Overview, error)
	ListUsers(ctx context.Context, session *model.Session) ([]model.User, error)
	ListDonations(ctx context.Context, session *model.Session) ([]model.Donation, error)
	ListRequests(ctx context.Context, session *model.Session) ([]model.Request, error)
	DeleteUser(ctx context.Context, session *model.Session, userID string, confirmed bool) error
	DeleteDonation(ctx context.Context, session *model.Session, donationID string, confirmed bool) error
}

// AdminHandler は管理者ダッシュボードのHTTPハンドラー。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// Overview は全体の集計値を返す。
// GET /api/admin/overview
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// ListUsers は全ユーザーを返す。パスワードハッシュは含めない。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": resp})
}

// ListDonations は全寄付を返す。
// GET /api/admin/donations
func (h *AdminHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.ListDonations(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"donations": donations})
}

// ListRequests は全リクエストを返す。
// GET /api/admin/requests
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequests(r.Context(), middleware.SessionFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// DeleteUser はユーザーを削除する。確認が必要。
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), middleware.Confirmed(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDonation は寄付を削除する。確認が必要。
// DELETE /api/admin/donations/{id}
func (h *AdminHandler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteDonation(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), middleware.Confirmed(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
