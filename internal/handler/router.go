package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/foodshare/internal/metrics"
	"github.com/hitoshi/foodshare/internal/middleware"
	"github.com/hitoshi/foodshare/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	// MetricsHandler が設定されていれば/metricsで公開する
	MetricsHandler http.Handler
	HealthCheck    HealthCheckFunc
	Logger         *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ユーザー登録
	UserService UserServiceInterface

	// ダッシュボード
	DonationService  DonationServiceInterface
	ClaimService     ClaimServiceInterface
	AnalyticsService AnalyticsServiceInterface
	AdminService     AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Session → Metrics → Logging → CSRF → RateLimit(General)
//
// ダッシュボードAPIは各ロールのRoleGuardで保護する。
func NewRouter(deps *RouterDeps) http.Handler {
	m := deps.Metrics
	if m == nil {
		m = metrics.NopCollector{}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
	r.Use(metrics.NewHTTPMiddleware(m))
	r.Use(middleware.NewLoggingMiddleware(logger))

	// --- ミドルウェア不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, m)
	userHandler := NewUserHandler(deps.UserService, m)
	donorHandler := NewDonorHandler(deps.DonationService, m)
	recipientHandler := NewRecipientHandler(deps.ClaimService, m)
	analystHandler := NewAnalystHandler(deps.AnalyticsService)
	adminHandler := NewAdminHandler(deps.AdminService)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
		r.Get("/api/navigate", Navigate)

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(middleware.NewRequireSession()).Get("/me", authHandler.Me)
		})

		// ユーザー登録（登録専用レート制限を追加）
		r.With(deps.RateLimiter.RegistrationMiddleware()).Post("/api/users", userHandler.Register)

		// 寄付者
		r.Route("/api/donor", func(r chi.Router) {
			r.Use(middleware.NewRoleGuard(model.RoleDonor))
			r.Get("/donations", donorHandler.ListDonations)
			r.Post("/donations", donorHandler.CreateDonation)
			r.Put("/donations/{id}", donorHandler.UpdateDonation)
			r.Delete("/donations/{id}", donorHandler.DeleteDonation)
		})

		// 受け取り団体
		r.Route("/api/recipient", func(r chi.Router) {
			r.Use(middleware.NewRoleGuard(model.RoleRecipient))
			r.Get("/donations", recipientHandler.ListAvailable)
			r.Get("/requests", recipientHandler.ListRequests)
			r.Post("/requests", recipientHandler.RequestDonation)
			r.Post("/requests/{id}/complete", recipientHandler.CompleteRequest)
		})

		// アナリスト
		r.Route("/api/analyst", func(r chi.Router) {
			r.Use(middleware.NewRoleGuard(model.RoleAnalyst))
			r.Get("/summary", analystHandler.Summary)
		})

		// 管理者
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.NewRoleGuard(model.RoleAdmin))
			r.Get("/overview", adminHandler.Overview)
			r.Get("/users", adminHandler.ListUsers)
			r.Delete("/users/{id}", adminHandler.DeleteUser)
			r.Get("/donations", adminHandler.ListDonations)
			r.Delete("/donations/{id}", adminHandler.DeleteDonation)
			r.Get("/requests", adminHandler.ListRequests)
		})
	})

	return r
}
