package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bkconnect/internal/metrics"
	"github.com/hitoshi/bkconnect/internal/middleware"
	"github.com/hitoshi/bkconnect/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	ProfileSource     middleware.ProfileSource
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	MetricsHandler    http.Handler // Prometheusスクレイプ用。nilの場合は/metricsを公開しない

	// 認証
	AuthService AuthServiceInterface
	Lifecycle   SessionLifecycle
	Resolver    ProfileResolverInterface
	AuthConfig  AuthHandlerConfig

	// お知らせ
	NewsService NewsServiceInterface

	// BK業務（違反記録・相談）
	CounselingService CounselingServiceInterface

	// ユーザー管理
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging
//	認証必須ルート: Session → CSRF → RateLimit(General) → Profile
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置し、
// ログイン・サインアップには認証試行専用のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.Lifecycle, deps.Resolver, deps.AuthConfig)
	newsHandler := NewNewsHandler(deps.NewsService)
	counselingHandler := NewCounselingHandler(deps.CounselingService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig.CookieDomain, deps.AuthConfig.CookieSecure)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		// 資格情報を扱うエンドポイントはIP単位のレート制限を適用
		r.With(deps.RateLimiter.CredentialMiddleware()).Post("/signup", authHandler.SignUp)
		r.With(deps.RateLimiter.CredentialMiddleware()).Post("/login", authHandler.SignIn)

		// OAuthフロー
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
		r.Post("/activity", authHandler.Activity)
		r.Get("/csrf", middleware.NewCSRFTokenHandler(deps.AuthConfig.CookieSecure))
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewProfileMiddleware(deps.ProfileSource))

		// お知らせ（全役割が閲覧可能）
		r.Route("/api/news", func(r chi.Router) {
			r.Get("/", newsHandler.ListPublished)
			r.Get("/{id}", newsHandler.Get)
		})

		// お知らせ管理
		r.Route("/api/admin/news", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCounselingTeacher))
			r.Get("/", newsHandler.ListAll)
			r.Post("/", newsHandler.Create)
			r.Put("/{id}", newsHandler.Update)
			r.Delete("/{id}", newsHandler.Delete)
		})

		// 違反記録
		r.Route("/api/violations", func(r chi.Router) {
			r.With(middleware.RequireRole(
				model.RoleAdmin, model.RoleCounselingTeacher, model.RoleHomeroomTeacher,
			)).Post("/", counselingHandler.RecordViolation)

			r.With(middleware.RequireRole(
				model.RoleAdmin, model.RoleCounselingTeacher,
			)).Delete("/{id}", counselingHandler.DeleteViolation)
		})

		// 生徒の違反記録閲覧（生徒本人の制限はハンドラー側で行う）
		r.Get("/api/students/{id}/violations", counselingHandler.ListViolations)

		// 相談（生徒）
		r.Route("/api/consultations", func(r chi.Router) {
			r.With(middleware.RequireRole(model.RoleStudent)).Post("/", counselingHandler.RequestConsultation)
			r.With(middleware.RequireRole(model.RoleStudent)).Get("/", counselingHandler.ListMyConsultations)

			// 相談の進行操作（BK教員）
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin, model.RoleCounselingTeacher))
				r.Post("/schedule", counselingHandler.Schedule)
				r.Post("/complete", counselingHandler.Complete)
				r.Post("/cancel", counselingHandler.Cancel)
			})
		})

		// 相談キュー（BK教員）
		r.With(middleware.RequireRole(
			model.RoleAdmin, model.RoleCounselingTeacher,
		)).Get("/api/counseling/queue", counselingHandler.Queue)

		// ユーザー管理（管理者）
		r.Route("/api/admin/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Get("/", userHandler.List)
			r.Put("/{id}/active", userHandler.SetActive)
			r.Put("/{id}/role", userHandler.SetRole)
		})

		// 退会（全役割）
		r.Delete("/api/users/me", userHandler.Withdraw)
	})

	return r
}
