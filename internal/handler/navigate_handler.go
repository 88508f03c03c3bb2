package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/route"
)

// Navigate は画面パスへの遷移可否を判定する。
// GET /api/navigate?path=
func Navigate(w http.ResponseWriter, r *http.Request) {
	decision := route.Resolve(r.URL.Query().Get("path"), middleware.SessionFromContext(r.Context()))
	writeJSON(w, http.StatusOK, decision)
}

// HealthCheckFunc はストレージの疎通確認を行う関数。
type HealthCheckFunc func(ctx context.Context) error

// NewHealthHandler はヘルスチェックのハンドラーを返す。checkがnilの場合は常に正常を返す。
// GET /health
func NewHealthHandler(check HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
