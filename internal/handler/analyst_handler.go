package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/foodshare/internal/analytics"
)

// AnalyticsServiceInterface はアナリストハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Summary(ctx context.Context) (*analytics.Summary, error)
}

// AnalystHandler はアナリストダッシュボードのHTTPハンドラー。
type AnalystHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalystHandler はAnalystHandlerを生成する。
func NewAnalystHandler(service AnalyticsServiceInterface) *AnalystHandler {
	return &AnalystHandler{service: service}
}

// Summary は全体の集計値を返す。
// GET /api/analyst/summary
func (h *AnalystHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
