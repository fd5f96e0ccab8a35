package app

import (
	"context"
	"database/sql"
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

	"github.com/hitoshi/coachlink/internal/auth"
	"github.com/hitoshi/coachlink/internal/config"
	"github.com/hitoshi/coachlink/internal/dailylog"
	"github.com/hitoshi/coachlink/internal/database"
	"github.com/hitoshi/coachlink/internal/handler"
	"github.com/hitoshi/coachlink/internal/logger"
	"github.com/hitoshi/coachlink/internal/metrics"
	"github.com/hitoshi/coachlink/internal/middleware"
	"github.com/hitoshi/coachlink/internal/profile"
	"github.com/hitoshi/coachlink/internal/repository"
	"github.com/hitoshi/coachlink/internal/role"
	"github.com/hitoshi/coachlink/internal/routing"
	"github.com/hitoshi/coachlink/internal/security"
	"github.com/hitoshi/coachlink/internal/user"
	"github.com/hitoshi/coachlink/internal/validation"
	"github.com/hitoshi/coachlink/internal/worker/cleanup"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, nil)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return db, nil
}

// newRegistry はアプリケーションメトリクスとランタイムメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// server はserveモードで組み立てたHTTPハンドラーと後片付け処理。
type server struct {
	handler http.Handler
	close   func()
}

// buildServer は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
// DBへの接続はリクエスト処理時まで行わない。
func buildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, collector *metrics.Collector) *server {
	log := slog.Default()

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	logRepo := repository.NewPostgresDailyLogRepo(db)

	// 認証
	roles := role.NewResolver(cfg.CoachEmails)
	cache := auth.NewSessionCache(cfg.SessionCacheSize, cfg.SessionCacheTTL, collector)
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider, userRepo, identRepo, sessionRepo, roles, cache,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	// ドメインサービス
	v := validation.New()
	profileService := profile.NewService(profileRepo, v, security.NewPlainTextSanitizer())
	logService := dailylog.NewService(logRepo, profileService, userRepo, v, security.NewNotesSanitizer(), collector)
	userService := user.NewService(userRepo, sessionRepo, logRepo, authService)

	// セッションルーター
	sessionRouter := routing.NewRouter(
		authService, profileService, roles, collector, log,
		routing.Config{DefaultFallback: cfg.CallbackFallback},
	)

	limiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)

	cookie := handler.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             log,
		SessionResolver:    authService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		CSRF:               middleware.CSRFConfig{CookieSecure: cfg.CookieSecure, CookieDomain: cfg.CookieDomain},
		HSTS:               cfg.CookieSecure,
		HTTPRecorder:       collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		SessionRouter: sessionRouter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			Cookie:        cookie,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService:  profileService,
		DailyLogService: logService,
		UserService:     userService,
	})

	return &server{handler: router, close: limiter.Stop}
}

// runServe はAPIサーバーモードで起動する。
// コンテキストがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, collector := newRegistry()
	srv := buildServer(cfg, db, reg, collector)
	defer srv.close()

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serveUntilDone(ctx, httpServer, "API server")
}

// serveUntilDone はコンテキストがキャンセルされるまでHTTPサーバーを動かし、
// キャンセル後にシャットダウンする。
func serveUntilDone(ctx context.Context, httpServer *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションのクリーンアップを定期実行し、/metricsを公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg, collector := newRegistry()
	job := cleanup.NewCleanupJob(db, slog.Default(), collector)

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(ctx, cfg.SessionCleanupInterval)
	}()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	err = serveUntilDone(ctx, metricsServer, "worker metrics server")

	cancel()
	<-done
	slog.Info("worker stopped gracefully")
	return err
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
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
