package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	SessionResolver    middleware.SessionResolver
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	CSRF               middleware.CSRFConfig
	HSTS               bool
	HTTPRecorder       middleware.HTTPRecorder // nilの場合はHTTPメトリクスを記録しない

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// セッションルーター
	SessionRouter SessionRouter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// オンボーディング・日次ログ・ユーザー
	ProfileService  ProfileServiceInterface
	DailyLogService DailyLogServiceInterface
	UserService     UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Logging → Recovery → Metrics → SecurityHeaders → CORS
//	  /auth/google/*: RateLimit(Auth)
//	  /api/* (要認証): Session → RateLimit(General) → CSRF → RequireRole
//
// ルート画面と/api/routeはセッションなしでも判定結果を返すため、
// セッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.HSTS}))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	entryHandler := NewEntryHandler(deps.SessionRouter, deps.AuthConfig.BaseURL)
	authHandler := NewAuthHandler(deps.AuthService, deps.SessionRouter, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	logHandler := NewDailyLogHandler(deps.DailyLogService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.Cookie)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// セッションルーター
	r.Get("/", entryHandler.Root)
	r.Get("/api/route", entryHandler.Route)

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF).ServeHTTP)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
		})
		r.With(middleware.NewCSRFMiddleware(deps.CSRF)).Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

		r.Get("/api/profile", profileHandler.GetProfile)

		// クライアント専用
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(model.RoleClient))
			r.Post("/api/onboarding", profileHandler.CompleteOnboarding)
			r.Post("/api/logs", logHandler.RecordLog)
			r.Get("/api/logs", logHandler.ListOwnLogs)
		})

		// コーチ専用
		r.Route("/api/clients", func(r chi.Router) {
			r.Use(middleware.NewRequireRoleMiddleware(model.RoleCoach))
			r.Get("/", userHandler.ListClients)
			r.Get("/{clientID}/logs", logHandler.ListClientLogs)
		})

		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
