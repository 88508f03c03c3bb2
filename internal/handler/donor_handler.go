package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/foodshare/internal/donation"
	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/model"
)

// DonationServiceInterface は寄付者ハンドラーが必要とするサービスインターフェース。
type DonationServiceInterface interface {
	ListOwn(ctx context.Context, donorEmail string) (*donation.OwnDonations, error)
	Create(ctx context.Context, session *model.Session, in donation.Input) (*model.Donation, error)
	Update(ctx context.Context, session *model.Session, id string, in donation.Input) (*model.Donation, error)
	Delete(ctx context.Context, session *model.Session, id string, confirmed bool) error
}

// DonorHandler は寄付者ダッシュボードのHTTPハンドラー。
// ルートガードでdonorロールが保証されている前提で動作する。
type DonorHandler struct {
	service DonationServiceInterface
	metrics metrics.MetricsCollector
}

// NewDonorHandler はDonorHandlerを生成する。
func NewDonorHandler(service DonationServiceInterface, m metrics.MetricsCollector) *DonorHandler {
	if m == nil {
		m = metrics.NopCollector{}
	}
	return &DonorHandler{service: service, metrics: m}
}

// ListDonations は自分の寄付一覧と集計値を返す。
// GET /api/donor/donations
func (h *DonorHandler) ListDonations(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	own, err := h.service.ListOwn(r.Context(), session.Email)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, own)
}

// CreateDonation は寄付を登録する。
// POST /api/donor/donations
func (h *DonorHandler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var in donation.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	d, err := h.service.Create(r.Context(), middleware.SessionFromContext(r.Context()), in)
	if err != nil {
		h.recordConflict(err, "create_donation")
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordDonationCreated()
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDonation は自分の寄付を上書き更新する。
// PUT /api/donor/donations/{id}
func (h *DonorHandler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	var in donation.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	d, err := h.service.Update(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.recordConflict(err, "update_donation")
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDonation は自分の寄付を削除する。確認が必要。
// DELETE /api/donor/donations/{id}
func (h *DonorHandler) DeleteDonation(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), middleware.SessionFromContext(r.Context()), chi.URLParam(r, "id"), middleware.Confirmed(r))
	if err != nil {
		h.recordConflict(err, "delete_donation")
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DonorHandler) recordConflict(err error, op string) {
	if isConcurrentUpdate(err) {
		h.metrics.RecordConflict(op)
	}
}
