package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/teamcal/internal/metrics"
	"github.com/hitoshi/teamcal/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CookieVerifier    middleware.CookieVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter // nilの場合はレート制限なし
	SecurityHeaders   bool
	EnableHSTS        bool
	CSRFConfig        *middleware.CSRFConfig // nilの場合はCSRF保護なし

	// ハンドラー
	AuthHandler         *AuthHandler
	MemberHandler       *MemberHandler
	AvailabilityHandler *AvailabilityHandler
	HealthHandler       *HealthHandler

	// メトリクス
	Collector prometheus.Gatherer
	Metrics   metrics.MetricsCollector
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → Session → CSRF
//
// レート制限は/api配下にのみ適用する。セッションミドルウェアは拒否を
// 行わず、認可の判断は各ハンドラーが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	if deps.SecurityHeaders {
		r.Use(middleware.NewSecurityHeadersMiddleware(deps.EnableHSTS))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.CookieVerifier))
	if deps.CSRFConfig != nil {
		r.Use(middleware.NewCSRFMiddleware(*deps.CSRFConfig))
	}

	// 認証フロー
	r.Get("/auth/google", deps.AuthHandler.Login)
	r.Get("/auth/callback", deps.AuthHandler.Callback)
	r.Post("/logout", deps.AuthHandler.Logout)

	// API
	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Get("/me", deps.AuthHandler.Me)
		r.Get("/members", deps.MemberHandler.List)
		r.Post("/members", deps.MemberHandler.Create)
		r.Get("/availability/{memberId}", deps.AvailabilityHandler.Get)

		if deps.CSRFConfig != nil {
			r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(*deps.CSRFConfig))
		}
	})

	// 運用エンドポイント
	r.Get("/health", deps.HealthHandler.Check)
	if deps.Collector != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Collector))
	}

	return r
}
