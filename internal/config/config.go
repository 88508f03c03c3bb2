// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/foodshare/internal/storage"
)

// DefaultAdminEmail は管理者メールアドレスの既定値。
const DefaultAdminEmail = "admin@foodwaste.com"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver storage.Driver
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPrefix   string
	DataDir       string

	// Admin
	AdminEmail    string
	AdminPassword string

	// Session
	SessionMaxAge int

	// Registration
	RegisterRedirectDelay time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral      int
	RateLimitRegistration int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// ストレージドライバーごとに必須の接続設定が異なる。
func Load() (*Config, error) {
	cfg := &Config{}

	driver, err := storage.ParseDriver(getEnvString("STORAGE_DRIVER", string(storage.DriverMemory)))
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %w", err)
	}
	cfg.StorageDriver = driver

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SQLitePath = os.Getenv("SQLITE_PATH")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.DataDir = getEnvString("DATA_DIR", "data")

	switch driver {
	case storage.DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case storage.DriverSQLite:
		if cfg.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case storage.DriverRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	}

	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	if cfg.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisPrefix = getEnvString("REDIS_PREFIX", storage.DefaultRedisPrefix)
	cfg.AdminEmail = strings.TrimSpace(getEnvString("ADMIN_EMAIL", DefaultAdminEmail))
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.RegisterRedirectDelay = getEnvDuration("REGISTER_REDIRECT_DELAY", 2*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRegistration = getEnvInt("RATE_LIMIT_REGISTRATION", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// StorageOptions はstorage.Openに渡す接続設定を返す。
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:      c.StorageDriver,
		DataDir:     c.DataDir,
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
		RedisAddr:   c.RedisAddr,
		RedisPrefix: c.RedisPrefix,
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}
