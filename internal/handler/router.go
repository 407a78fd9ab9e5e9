package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/newsdesk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 自動収集スケジュール
	ScheduleStore      ScheduleStore
	ScheduleController ScheduleController

	// スクレイパー
	ScraperService ScraperService
	ScraperLogs    ScraperLogLister
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → RequestID → LoggingMiddleware → RecoveryMiddleware → SecurityHeaders
//
// スクレイパーの実行と全停止にはクライアント単位のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.RequestID)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	scheduleHandler := NewScheduleHandler(deps.ScheduleStore, deps.ScheduleController, deps.Logger)
	scraperHandler := NewScraperHandler(deps.ScraperService, deps.ScraperLogs, deps.Logger)
	regionHandler := NewRegionHandler()

	r.Get("/health", NewHealthHandler(deps.HealthChecker, deps.Logger))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// 自動収集スケジュール
		r.Route("/schedule-config", func(r chi.Router) {
			r.Get("/", scheduleHandler.GetConfig)
			r.Post("/", scheduleHandler.SaveConfig)
			r.Post("/stop", scheduleHandler.StopSchedule)
		})

		// スクレイパー実行（重い操作のためレート制限を追加）
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.Middleware())
			}
			r.Post("/run-scraper", scraperHandler.RunScraper)
			r.Post("/kill-all", scraperHandler.KillAll)
		})

		r.Route("/scraper", func(r chi.Router) {
			r.Get("/jobs", scraperHandler.ListJobs)
			r.Post("/jobs/{id}/stop", scraperHandler.StopJob)
			r.Get("/logs", scraperHandler.ListLogs)
		})

		// 地域とアクセス判定
		r.Get("/regions", regionHandler.ListRegions)
		r.Get("/regions/accessible", regionHandler.AccessibleRegions)
		r.Post("/access/can-edit", regionHandler.CanEdit)
	})

	return r
}
