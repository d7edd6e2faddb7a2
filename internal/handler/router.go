package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/timeman/internal/middleware"
)

// HealthChecker はヘルスチェックで疎通確認する依存のインターフェース。
// *sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// リクエストログの出力先。nilの場合はslog.Default()を使用する。
	Logger *slog.Logger

	// タイマー
	MachineRegistry MachineRegistryInterface
	TimerMetrics    TimerMetrics

	// 時間記録
	EntryService EntryServiceInterface

	// カタログ
	ProjectLister  ProjectListerInterface
	CategoryLister CategoryListerInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORSMiddleware → CSRFMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// Recoveryを最外殻に置くことで、他のミドルウェアを含むどこでpanicが起きても
// 500レスポンスに変換される。ヘルスチェック（/health）とCSRFトークン配布は
// 認証チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// panic回復とリクエストログを最外殻に適用（全ルートに効く）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))

	// セキュリティヘッダーとCORS
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	timerHandler := NewTimerHandler(deps.MachineRegistry, deps.TimerMetrics)
	entryHandler := NewEntryHandler(deps.EntryService)
	catalogHandler := NewCatalogHandler(deps.ProjectLister, deps.CategoryLister)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// CSRFトークン取得エンドポイント（認証前にトークンを配布できるようにする）
	r.Method(http.MethodGet, "/api/csrf", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// タイマーライフサイクル
		r.Route("/api/timer", func(r chi.Router) {
			r.Get("/", timerHandler.GetTimer)
			r.Post("/start", timerHandler.StartTimer)
			r.Post("/stop", timerHandler.StopTimer)

			// 確定はエントリ書き込みを伴うため専用レート制限を追加
			r.With(deps.RateLimiter.EntryWriteMiddleware()).Post("/commit", timerHandler.CommitTimer)
			r.Post("/discard", timerHandler.DiscardTimer)
		})

		// 時間記録管理
		r.Route("/api/entries", func(r chi.Router) {
			// POST /api/entries - クイック入力（書き込み専用レート制限を追加）
			r.With(deps.RateLimiter.EntryWriteMiddleware()).Post("/", entryHandler.CreateEntry)
			r.Get("/", entryHandler.ListEntries)

			r.Route("/{id}", func(r chi.Router) {
				r.With(deps.RateLimiter.EntryWriteMiddleware()).Put("/", entryHandler.UpdateEntry)
				r.With(deps.RateLimiter.EntryWriteMiddleware()).Delete("/", entryHandler.DeleteEntry)
			})
		})

		// 計上先カタログ
		r.Get("/api/projects", catalogHandler.ListProjects)
		r.Get("/api/categories", catalogHandler.ListCategories)
	})

	return r
}
