// Package app はコマンドの実行とアプリケーション全体の依存関係のワイヤリングを行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/foodshare/internal/admin"
	"github.com/hitoshi/foodshare/internal/analytics"
	"github.com/hitoshi/foodshare/internal/auth"
	"github.com/hitoshi/foodshare/internal/claim"
	"github.com/hitoshi/foodshare/internal/config"
	"github.com/hitoshi/foodshare/internal/database"
	"github.com/hitoshi/foodshare/internal/donation"
	"github.com/hitoshi/foodshare/internal/handler"
	"github.com/hitoshi/foodshare/internal/logger"
	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/repository"
	"github.com/hitoshi/foodshare/internal/security"
	"github.com/hitoshi/foodshare/internal/storage"
	"github.com/hitoshi/foodshare/internal/user"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構築する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。サブコマンドが無い場合はserveとして動作する。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Application はサーバーが使う組み立て済みの依存関係。
type Application struct {
	Handler http.Handler

	store   storage.Store
	limiter *middleware.RateLimiter
}

// Close はバックグラウンド処理を停止し、ストレージを閉じる。
func (a *Application) Close() error {
	a.limiter.Stop()
	return a.store.Close()
}

// NewApplication はストレージの上にリポジトリ、サービス、ルーターを組み立てる。
// storeの所有権はApplicationに移り、Closeで閉じられる。
func NewApplication(cfg *config.Config, store storage.Store, log *slog.Logger) (*Application, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. リポジトリの初期化
	userRepo := repository.NewUserRepository(store, log)
	donationRepo := repository.NewDonationRepository(store, log)
	requestRepo := repository.NewRequestRepository(store, log)
	sessionRepo := repository.NewSessionRepository(store, log)

	// 2. セキュリティ
	hasher := auth.NewBcryptHasher(0)
	sanitizer := security.NewTextSanitizer()
	adminCred, err := auth.NewAdminCredential(cfg.AdminEmail, cfg.AdminPassword, hasher)
	if err != nil {
		return nil, err
	}

	// 3. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, hasher, adminCred, auth.ServiceConfig{
		SessionMaxAge: time.Duration(cfg.SessionMaxAge) * time.Second,
	})
	userService := user.NewService(userRepo, hasher, sanitizer, user.ServiceConfig{
		RedirectDelay: cfg.RegisterRedirectDelay,
	})
	donationService := donation.NewService(donationRepo, sanitizer)
	claimService := claim.NewService(donationRepo, requestRepo)
	analyticsService := analytics.NewService(userRepo, donationRepo, requestRepo)
	adminService := admin.NewService(userRepo, donationRepo, requestRepo, userService, cfg.AdminEmail)

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 5. ルーターの構築
	limiter := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitRegistration))

	router := handler.NewRouter(&handler.RouterDeps{
		SessionResolver:   authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:    limiter,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		HealthCheck:    storageHealthCheck(store),
		Logger:         log,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		UserService: userService,

		DonationService:  donationService,
		ClaimService:     claimService,
		AnalyticsService: analyticsService,
		AdminService:     adminService,
	})

	return &Application{Handler: router, store: store, limiter: limiter}, nil
}

// storageHealthCheck はusersキーの読み込みでストレージの疎通を確認する。
func storageHealthCheck(store storage.Store) handler.HealthCheckFunc {
	return func(ctx context.Context) error {
		_, err := store.Load(ctx, storage.KeyUsers)
		return err
	}
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. ストレージ接続
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	slog.Info("storage opened", slog.String("driver", string(cfg.StorageDriver)))

	application, err := NewApplication(cfg, store, slog.Default())
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// 2. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      application.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("base_url", cfg.BaseURL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// postgres以外のドライバーでは何もしない。sqliteはオープン時にテーブルを作成する。
func runMigrate(cfg *config.Config) error {
	if cfg.StorageDriver != storage.DriverPostgres {
		slog.Info("no migrations required for storage driver",
			slog.String("driver", string(cfg.StorageDriver)),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, healthURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return fmt.Errorf("invalid health check url: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
