package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/foodshare/internal/claim"
	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/model"
)

// ClaimServiceInterface は受け取り団体ハンドラーが必要とするサービスインターフェース。
type ClaimServiceInterface interface {
	ListAvailable(ctx context.Context, search string) ([]model.Donation, error)
	ListOwn(ctx context.Context, recipientEmail string) (*claim.OwnRequests, error)
	RequestDonation(ctx context.Context, session *model.Session, donationID string, confirmed bool) (*model.Request, error)
	Complete(ctx context.Context, session *model.Session, requestID string, confirmed bool) (*model.Request, error)
}

// RecipientHandler は受け取り団体ダッシュボードのHTTPハンドラー。
type RecipientHandler struct {
	service ClaimServiceInterface
	metrics metrics.MetricsCollector
}

// NewRecipientHandler はRecipientHandlerを生成する。
func NewRecipientHandler(service ClaimServiceInterface, m metrics.MetricsCollector) *RecipientHandler {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &RecipientHandler{service: service, metrics: m}
}

// requestDonationRequest は寄付リクエストのボディ。
type requestDonationRequest struct {
	DonationID string `json:"donationId"`
}

// ListAvailable はリクエスト可能な寄付を返す。qで食品名と受け取り場所を絞り込む。
// GET /api/recipient/donations?q=
func (h *RecipientHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	donations, err := h.service.ListAvailable(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"donations": donations})
}

// ListRequests は自分のリクエスト一覧と集計値を返す。
// GET /api/recipient/requests
func (h *RecipientHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	own, err := h.service.ListOwn(r.Context(), session.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, own)
}

// RequestDonation は寄付をリクエストする。確認が必要。
// POST /api/recipient/requests
func (h *RecipientHandler) RequestDonation(w http.ResponseWriter, r *http.Request) {
	var body requestDonationRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	req, err := h.service.RequestDonation(r.Context(), middleware.SessionFromContext(r.Context()), body.DonationID, middleware.Confirmed(r))
	if err != nil {
		if isConcurrentUpdate(err) {
			h.metrics.RecordConflict("request_donation")
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordRequestCreated()
	writeJSON(w, http.StatusCreated, req)
}

// CompleteRequest は受け取り完了を記録する。確認が必要。
// POST /api/recipient/requests/{id}/complete
func (h *RecipientHandler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.Complete(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), middleware.Confirmed(r))
	if err != nil {
		if isConcurrentUpdate(err) {
			h.metrics.RecordConflict("complete_request")
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordRequestCompleted()
	writeJSON(w, http.StatusOK, req)
}
