package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/foodshare/internal/model"
)

// chain はミドルウェアを外側から順に適用する。
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// TestMiddlewareChain_SessionGuardAndLogging は
// セッション読み込み、ログ、ロールガードを組み合わせた動作を検証する。
func TestMiddlewareChain_SessionGuardAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	resolver := resolverFor(map[string]*model.Session{
		"donor-token": {Email: "donor@example.com", Role: model.RoleDonor},
	})

	handler := chain(okHandler,
		NewRecoveryMiddleware(),
		NewSessionMiddleware(resolver),
		NewLoggingMiddleware(logger),
		NewRoleGuard(model.RoleDonor),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/donor/donations", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "donor-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["user_email"] != "donor@example.com" {
		t.Errorf("user_email = %v", entry["user_email"])
	}
}

// TestMiddlewareChain_RevokedSession_Returns401 は
// 無効になったセッションのトークンでガード付きルートが401になることを検証する。
func TestMiddlewareChain_RevokedSession_Returns401(t *testing.T) {
	handler := chain(okHandler,
		NewSessionMiddleware(resolverFor(nil)),
		NewRoleGuard(model.RoleAdmin),
	)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/users/1", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "revoked"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// TestRecoveryMiddleware_PanicReturns500 はpanicが統一フォーマットの500になることを検証する。
func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q", body.Code)
	}
}

// TestSecurityHeadersMiddleware は全レスポンスにセキュリティヘッダーが付与されることを検証する。
func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(okHandler)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}
