package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/minyanim/internal/metrics"
	"github.com/hitoshi/minyanim/internal/middleware"
	"github.com/hitoshi/minyanim/internal/schedule"
	"github.com/hitoshi/minyanim/internal/zmanim"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.HTTPRecorder
	Gatherer          prometheus.Gatherer
	AdminToken        string

	// 日付の解釈
	Location *time.Location
	Now      Clock

	// 礼拝一覧
	Organizations OrganizationFinder
	Resolver      EventResolver

	// ズマンと暦
	Oracle         zmanim.Oracle
	ZmanimLocation zmanim.Location
	Classifier     schedule.DayClassifier
	Calendar       schedule.LiturgicalCalendar

	// カレンダー取り込み
	Importer CalendarImporter

	// ヘルスチェック
	Health HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → Metrics → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
// 取り込みAPIは管理者トークンと取り込み用レート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	eventsHandler := NewEventsHandler(deps.Organizations, deps.Resolver, deps.Classifier, loc, now, logger)
	zmanimHandler := NewZmanimHandler(deps.Oracle, deps.ZmanimLocation, loc, now, logger)
	daysHandler := NewDaysHandler(deps.Classifier, deps.Calendar, loc, logger)
	importHandler := NewImportHandler(deps.Importer, logger)

	// --- レート制限なしのルート ---
	r.Get("/health", HealthHandler(deps.Health, logger))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 公開API ---
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		r.Get("/api/zmanim", zmanimHandler.GetZmanim)
		r.Get("/api/days/{date}", daysHandler.GetDay)

		r.Route("/api/organizations/{id}", func(r chi.Router) {
			r.Get("/events", eventsHandler.ListEvents)

			// POST /api/organizations/{id}/calendar/import - 管理者のみ
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminAuthMiddleware(deps.AdminToken, logger))
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.ImportMiddleware())
				}
				r.Post("/calendar/import", importHandler.ImportCalendar)
			})
		})
	})

	return r
}
