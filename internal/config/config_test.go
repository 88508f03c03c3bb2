package config

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/foodshare/internal/storage"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("ADMIN_PASSWORD", "admin123")
	t.Setenv("BASE_URL", "http://localhost:8080")
}

func TestLoad_MemoryDriver_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StorageDriver != storage.DriverMemory {
		t.Errorf("StorageDriver = %q, want memory", cfg.StorageDriver)
	}
	if cfg.AdminPassword != "admin123" {
		t.Errorf("AdminPassword = %q", cfg.AdminPassword)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AdminEmail != DefaultAdminEmail {
		t.Errorf("AdminEmail = %q, want %q", cfg.AdminEmail, DefaultAdminEmail)
	}
	if cfg.SessionMaxAge != 86400 {
		t.Errorf("SessionMaxAge = %d, want 86400", cfg.SessionMaxAge)
	}
	if cfg.RegisterRedirectDelay != 2*time.Second {
		t.Errorf("RegisterRedirectDelay = %v, want 2s", cfg.RegisterRedirectDelay)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitRegistration != 10 {
		t.Errorf("RateLimitRegistration = %d, want 10", cfg.RateLimitRegistration)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want data", cfg.DataDir)
	}
	if cfg.RedisPrefix != storage.DefaultRedisPrefix {
		t.Errorf("RedisPrefix = %q", cfg.RedisPrefix)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure must be false for http BASE_URL")
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q", cfg.CORSAllowedOrigin)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("BASE_URL", "https://foodshare.example.com")
	t.Setenv("ADMIN_EMAIL", "  ops@example.com ")
	t.Setenv("SESSION_MAX_AGE", "3600")
	t.Setenv("REGISTER_REDIRECT_DELAY", "500ms")
	t.Setenv("RATE_LIMIT_GENERAL", "60")
	t.Setenv("RATE_LIMIT_REGISTRATION", "3")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("COOKIE_DOMAIN", "example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AdminEmail != "ops@example.com" {
		t.Errorf("AdminEmail = %q", cfg.AdminEmail)
	}
	if cfg.SessionMaxAge != 3600 {
		t.Errorf("SessionMaxAge = %d", cfg.SessionMaxAge)
	}
	if cfg.RegisterRedirectDelay != 500*time.Millisecond {
		t.Errorf("RegisterRedirectDelay = %v", cfg.RegisterRedirectDelay)
	}
	if cfg.RateLimitGeneral != 60 || cfg.RateLimitRegistration != 3 {
		t.Errorf("rate limits = %d/%d", cfg.RateLimitGeneral, cfg.RateLimitRegistration)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure must be true for https BASE_URL")
	}
	if cfg.CookieDomain != "example.com" {
		t.Errorf("CookieDomain = %q", cfg.CookieDomain)
	}
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SESSION_MAX_AGE", "abc")
	t.Setenv("RATE_LIMIT_GENERAL", "-5")
	t.Setenv("REGISTER_REDIRECT_DELAY", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.SessionMaxAge != 86400 {
		t.Errorf("SessionMaxAge = %d, want default", cfg.SessionMaxAge)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want default", cfg.RateLimitGeneral)
	}
	if cfg.RegisterRedirectDelay != 2*time.Second {
		t.Errorf("RegisterRedirectDelay = %v, want default", cfg.RegisterRedirectDelay)
	}
}

func TestLoad_RequiredByDriver(t *testing.T) {
	tests := []struct {
		name        string
		driver      string
		env         map[string]string
		wantMissing string
	}{
		{"postgresはDATABASE_URL必須", "postgres", nil, "DATABASE_URL"},
		{"sqliteはSQLITE_PATH必須", "sqlite", nil, "SQLITE_PATH"},
		{"redisはREDIS_ADDR必須", "redis", nil, "REDIS_ADDR"},
		{"postgres設定済み", "postgres", map[string]string{"DATABASE_URL": "postgres://localhost/foodshare"}, ""},
		{"sqlite設定済み", "sqlite", map[string]string{"SQLITE_PATH": "/tmp/foodshare.db"}, ""},
		{"redis設定済み", "redis", map[string]string{"REDIS_ADDR": "localhost:6379"}, ""},
		{"fileは追加の必須なし", "file", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv("STORAGE_DRIVER", tt.driver)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantMissing != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantMissing) {
					t.Fatalf("expected error mentioning %s, got %v", tt.wantMissing, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if string(cfg.StorageDriver) != tt.driver {
				t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, tt.driver)
			}
		})
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"ADMIN_PASSWORD", "BASE_URL"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q must mention %s", err, name)
		}
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("STORAGE_DRIVER", "mongodb")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestStorageOptions(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/foodshare.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	opts := cfg.StorageOptions()
	if opts.Driver != storage.DriverSQLite || opts.SQLitePath != "/tmp/foodshare.db" {
		t.Errorf("unexpected options: %+v", opts)
	}
}
