package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bullpen/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBの部分集合として定義する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	ProfileLoader     middleware.ProfileLoader
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// エージェントカタログ
	Catalog CatalogInterface

	// エンゲージメントとエクスポート
	HostService HostServiceInterface

	// 管理コンソール
	ProfileAdmin ProfileAdminInterface

	// 承認状態のライブ配信
	Watcher       ProfileWatcher
	ProfileGetter ProfileGetter
	WatchGauge    WatchSubscriberGauge

	// Prometheusメトリクス（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware) → CSRFMiddleware
//
// 認証ルート（/auth/*）とヘルスチェックはミドルウェアチェーンの外に配置する。
// 承認制の境界はRequireApprovedミドルウェアで、承認待ちユーザーは
// /auth/me と /api/profile/watch のみアクセスできる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	agentHandler := NewAgentHandler(deps.Catalog)
	engagementHandler := NewEngagementHandler(deps.HostService)
	adminHandler := NewAdminHandler(deps.ProfileAdmin)
	watchHandler := NewWatchHandler(deps.Watcher, deps.ProfileGetter, deps.WatchGauge)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// 承認状態のライブ配信（承認待ちユーザーもアクセス可）
		r.Get("/api/profile/watch", watchHandler.Watch)

		// --- 承認済みユーザーのみのルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireApprovedMiddleware(deps.ProfileLoader))

			// エージェントカタログ
			r.Route("/api/agents", func(r chi.Router) {
				r.Get("/", agentHandler.ListAgents)
				r.Get("/{id}", agentHandler.GetAgent)
			})

			// エンゲージメント管理
			r.Route("/api/engagements", func(r chi.Router) {
				r.Post("/", engagementHandler.Engage)
				r.Get("/", engagementHandler.CurrentEngagement)
				r.Delete("/", engagementHandler.Disengage)

				// 完了シグナル（エクスポート専用レート制限を追加）
				r.With(deps.RateLimiter.ExportMiddleware()).Post("/complete", engagementHandler.Complete)
			})

			// エクスポート
			r.Route("/api/exports", func(r chi.Router) {
				r.With(deps.RateLimiter.ExportMiddleware()).Post("/", engagementHandler.ManualExport)
				r.Get("/latest", engagementHandler.LatestExport)
			})

			// --- 管理者のみのルート ---
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewRequireAdminMiddleware())

				r.Route("/api/admin/profiles", func(r chi.Router) {
					r.Get("/", adminHandler.ListProfiles)
					r.Put("/{id}/status", adminHandler.SetProfileStatus)
				})
			})
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
