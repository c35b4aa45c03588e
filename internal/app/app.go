// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/teamcal/internal/auth"
	"github.com/hitoshi/teamcal/internal/availability"
	"github.com/hitoshi/teamcal/internal/calendar"
	"github.com/hitoshi/teamcal/internal/config"
	"github.com/hitoshi/teamcal/internal/database"
	"github.com/hitoshi/teamcal/internal/handler"
	"github.com/hitoshi/teamcal/internal/logger"
	"github.com/hitoshi/teamcal/internal/metrics"
	"github.com/hitoshi/teamcal/internal/middleware"
	"github.com/hitoshi/teamcal/internal/model"
	"github.com/hitoshi/teamcal/internal/repository"
	"github.com/hitoshi/teamcal/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

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
		slog.String("environment", cfg.Environment),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DATABASE_URLが設定されていればPostgreSQLのセッションストアを使用し、
// 未設定の場合はインメモリストアで起動する。全依存関係をワイヤリングし、
// HTTPサーバーを起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	sessionTTL := time.Duration(cfg.SessionMaxAge) * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. セッションストアの選択
	var sessionStore repository.SessionStore
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")

		sessionStore = repository.NewPostgresSessionStore(db, sessionTTL)

		// 期限切れセッションの日次クリーンアップ
		cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
		go func() {
			// 起動直後に1回実行
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
			cleanupJob.RunDaily(ctx)
		}()
	} else {
		slog.Info("DATABASE_URL not set, using in-memory session store")
		memStore := repository.NewMemorySessionStore(sessionTTL)
		defer memStore.Stop()
		sessionStore = memStore
	}

	// 2. メンバー名簿の初期化
	seed, err := parseMembersSeed(cfg.MembersSeed)
	if err != nil {
		return fmt.Errorf("failed to parse members seed: %w", err)
	}
	memberRepo := repository.NewInMemoryMemberRepo(seed)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	signer := auth.NewCookieSigner(cfg.SessionSecret)
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(oauthProvider, sessionStore, collector)

	calendarClient := calendar.NewClient(calendar.ClientConfig{})
	availabilityService := availability.NewService(
		sessionStore, memberRepo, calendarClient, collector,
		cfg.UpstreamTimeout, slog.Default(),
	)

	// 5. ミドルウェア依存の構築
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		rateLimiterCfg := middleware.DefaultRateLimiterConfig()
		rateLimiterCfg.Requests = cfg.RateLimitGeneral
		rateLimiterCfg.Window = cfg.RateLimitWindow
		rateLimiter = middleware.NewRateLimiter(rateLimiterCfg)
		defer rateLimiter.Stop()
	}

	var csrfConfig *middleware.CSRFConfig
	if cfg.CSRFEnabled {
		csrfConfig = &middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		}
	}

	// 6. ルーターの構築
	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionStore,
		CookieVerifier:    signer,
		CORSAllowedOrigin: cfg.ClientURL,
		RateLimiter:       rateLimiter,
		SecurityHeaders:   cfg.SecurityHeadersEnabled,
		EnableHSTS:        cfg.IsProduction(),
		CSRFConfig:        csrfConfig,

		AuthHandler: handler.NewAuthHandler(authService, signer, handler.AuthHandlerConfig{
			ClientURL:     cfg.ClientURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		}),
		MemberHandler:       handler.NewMemberHandler(memberRepo),
		AvailabilityHandler: handler.NewAvailabilityHandler(availabilityService, !cfg.IsProduction()),
		HealthHandler:       handler.NewHealthHandler(pinger),

		Collector: registry,
		Metrics:   collector,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// parseMembersSeed はMEMBERS_SEED環境変数のJSON配列を解析する。
// 空文字列の場合は空の名簿で起動する。
func parseMembersSeed(raw string) ([]model.Member, error) {
	if raw == "" {
		return nil, nil
	}

	var members []model.Member
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, fmt.Errorf("invalid members seed JSON: %w", err)
	}
	return members, nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
