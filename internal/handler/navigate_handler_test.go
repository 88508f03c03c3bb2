package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/route"
)

func TestNavigate(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		session      *model.Session
		wantOutcome  route.Outcome
		wantRedirect string
	}{
		{"未ログインでランディング", "/", nil, route.OutcomePermit, ""},
		{"未ログインでダッシュボード", "/donor-dashboard", nil, route.OutcomeRedirect, "/login"},
		{"寄付者で寄付者ダッシュボード", "/donor-dashboard", testDonor, route.OutcomePermit, ""},
		{"受け取り団体で管理者ダッシュボード", "/admin-dashboard", testRecipient, route.OutcomeRedirect, "/login"},
		{"未定義のパス", "/unknown", testDonor, route.OutcomeRedirect, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/navigate?path="+tt.path, nil)
			if tt.session != nil {
				req = withSession(req, tt.session)
			}
			w := httptest.NewRecorder()

			Navigate(w, req)

			assertStatus(t, w, http.StatusOK)
			got := decodeBody[route.Decision](t, w)
			if got.Outcome != tt.wantOutcome || got.Redirect != tt.wantRedirect {
				t.Errorf("decision = %+v, want %s redirect=%q", got, tt.wantOutcome, tt.wantRedirect)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		check      HealthCheckFunc
		wantStatus int
		wantBody   string
	}{
		{"チェック関数なし", nil, http.StatusOK, "ok"},
		{"ストレージ正常", func(ctx context.Context) error { return nil }, http.StatusOK, "ok"},
		{"ストレージ異常", func(ctx context.Context) error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.check)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assertStatus(t, w, tt.wantStatus)
			body := decodeBody[map[string]string](t, w)
			if body["status"] != tt.wantBody {
				t.Errorf("status = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}
