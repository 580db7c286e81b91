package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/moodmate/internal/middleware"
	"github.com/hitoshi/moodmate/internal/realtime"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	TokenValidator    middleware.TokenValidator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// リアルタイム配信
	Registry     ConnRegistry
	ReadMarker   realtime.ReadMarker
	WSSendBuffer int

	AuthService         AuthServiceInterface
	NotificationService NotificationServiceInterface
	ReminderService     ReminderServiceInterface
	MotivationService   MotivationServiceInterface
	MoodService         MoodServiceInterface
	UserService         UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → SecurityHeaders → CORS
//	  → (認証が必要なルートのみ) Auth → RateLimit(ユーザー単位)
//
// 登録・ログインは接続元IP単位でレート制限する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	reminderHandler := NewReminderHandler(deps.ReminderService)
	motivationHandler := NewMotivationHandler(deps.MotivationService)
	moodHandler := NewMoodHandler(deps.MoodService)
	userHandler := NewUserHandler(deps.UserService)
	wsHandler := NewWSHandler(
		deps.TokenValidator, deps.Registry, deps.ReadMarker,
		deps.Logger, deps.CORSAllowedOrigin, deps.WSSendBuffer,
	)
	rateLimit := deps.RateLimiter.Middleware()

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.With(rateLimit).Get("/ws", wsHandler.ServeHTTP)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(rateLimit).Post("/register", authHandler.Register)
		r.With(rateLimit).Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAuthMiddleware(deps.TokenValidator, deps.Logger))
			r.Use(rateLimit)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenValidator, deps.Logger))
		r.Use(rateLimit)

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Put("/read-all", notificationHandler.MarkAllRead)
			r.Put("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/{id}", notificationHandler.Delete)
		})

		r.Route("/api/reminders", func(r chi.Router) {
			r.Post("/", reminderHandler.Create)
			r.Get("/", reminderHandler.List)
			r.Put("/{id}", reminderHandler.Update)
			r.Delete("/{id}", reminderHandler.Delete)
		})

		r.Route("/api/motivation", func(r chi.Router) {
			r.Get("/", motivationHandler.List)
			r.Post("/", motivationHandler.Create)
			r.Post("/seed", motivationHandler.Seed)
			r.Get("/{mood}", motivationHandler.ForMood)
		})

		r.Route("/api/moods", func(r chi.Router) {
			r.Post("/", moodHandler.Record)
			r.Get("/", moodHandler.List)
		})

		r.Route("/api/users/me", func(r chi.Router) {
			r.Get("/", userHandler.Profile)
			r.Put("/", userHandler.UpdateProfile)
			r.Delete("/", userHandler.Withdraw)
		})
	})

	return r
}
