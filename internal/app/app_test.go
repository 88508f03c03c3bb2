package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/foodshare/internal/config"
	"github.com/hitoshi/foodshare/internal/storage"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("ADMIN_EMAIL", "admin@foodwaste.com")
	t.Setenv("ADMIN_PASSWORD", "AdminPass1")
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("LOG_LEVEL", "")
}

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StorageDriver != storage.DriverMemory {
		t.Errorf("StorageDriver = %q, want memory", cfg.StorageDriver)
	}

	// グローバルロガーがJSON出力になっていること
	slog.Default().Info("init test")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" || entry["service"] != "foodshare" {
		t.Errorf("entry = %v", entry)
	}
}

func TestInit_LogLevelFromConfig(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	slog.Default().Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("INFO should be filtered at warn level, got %s", buf.String())
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	setTestEnv(t)
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("BASE_URL", "")

	cfg, err := Init(&bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	setTestEnv(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	application, err := NewApplication(cfg, storage.NewMemoryStore(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewApplication() error = %v", err)
	}
	t.Cleanup(func() { application.Close() })
	return application
}

func TestNewApplication_Health(t *testing.T) {
	application := newTestApplication(t)

	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
}

func TestNewApplication_MetricsExposed(t *testing.T) {
	application := newTestApplication(t)

	// 1回リクエストしてからメトリクスを取得する
	application.Handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"foodshare_http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestNewApplication_AdminLogin(t *testing.T) {
	application := newTestApplication(t)

	// CSRFトークンを取得してからログインする
	w := httptest.NewRecorder()
	application.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	var csrf *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" {
			csrf = c
		}
	}
	if csrf == nil {
		t.Fatal("csrf cookie not issued")
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"admin@foodwaste.com","password":"AdminPass1","role":"admin"}`))
	req.AddCookie(csrf)
	req.Header.Set("X-CSRF-Token", csrf.Value)
	w = httptest.NewRecorder()
	application.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"redirect":"/admin-dashboard"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"認証情報あり", "postgres://user:secret@db:5432/foodshare?sslmode=disable", "postgres://user:xxxxx@db:5432/foodshare?sslmode=disable"},
		{"認証情報なし", "postgres://db:5432/foodshare", "postgres://db:5432/foodshare"},
		{"URLでない", "not a url", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskDatabaseURL(tt.in)
			if got != tt.want {
				t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Contains(got, "secret") {
				t.Errorf("password leaked: %q", got)
			}
		})
	}
}
