package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/moodmate/internal/auth"
	"github.com/hitoshi/moodmate/internal/config"
	"github.com/hitoshi/moodmate/internal/handler"
	"github.com/hitoshi/moodmate/internal/mail"
	"github.com/hitoshi/moodmate/internal/metrics"
	"github.com/hitoshi/moodmate/internal/middleware"
	"github.com/hitoshi/moodmate/internal/mood"
	"github.com/hitoshi/moodmate/internal/motivation"
	"github.com/hitoshi/moodmate/internal/notification"
	"github.com/hitoshi/moodmate/internal/realtime"
	"github.com/hitoshi/moodmate/internal/reminder"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/user"
	"github.com/hitoshi/moodmate/internal/worker/cleanup"
	motivationworker "github.com/hitoshi/moodmate/internal/worker/motivation"
	reminderworker "github.com/hitoshi/moodmate/internal/worker/reminder"
)

// server はserveモードで動作するコンポーネント一式を保持する。
type server struct {
	cfg    *config.Config
	logger *slog.Logger

	http        *http.Server
	registry    *realtime.Registry
	rateLimiter *middleware.RateLimiter
	reminders   *reminderworker.Scheduler
	motivation  *motivationworker.Scheduler
	cleanup     *cleanup.CleanupJob
}

// newServer は全依存関係をワイヤリングしてserverを構築する。
// バックグラウンド処理はstartを呼ぶまで開始しない。
func newServer(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*server, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	reminderRepo := repository.NewPostgresReminderRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	moodRepo := repository.NewPostgresMoodRepo(db)
	motivationRepo := repository.NewPostgresMotivationRepo(db)

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.NewCollector(reg)

	// 3. メール送信
	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return nil, err
	}

	// 4. 認証
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionLifetime())
	validator := auth.NewValidator(tokens, sessionRepo, userRepo, logger)
	authService := auth.NewService(tokens, userRepo, sessionRepo, mailer, logger)

	// 5. リアルタイム配信と通知パイプライン
	registry := realtime.NewRegistry(logger, mc)
	notificationService := notification.NewService(
		notificationRepo, userRepo, registry, mailer, logger, mc,
		notification.WithEmail(notification.KindMotivation, cfg.MotivationEmail),
	)

	// 6. ドメインサービス
	picker := motivation.NewPicker(motivationRepo)
	motivationService := motivation.NewService(motivationRepo, picker, logger)
	reminderService := reminder.NewService(reminderRepo)
	moodService := mood.NewService(moodRepo)
	userService := user.NewService(userRepo, sessionRepo, registry, logger)

	// 7. スケジューラとクリーンアップ
	reminderScheduler := reminderworker.NewScheduler(
		reminderRepo, notificationService, logger, mc,
		cfg.ReminderInterval, cfg.ReminderMaxConcurrent,
	)
	motivationScheduler := motivationworker.NewScheduler(
		userRepo, moodRepo, picker, notificationService, logger, mc,
		cfg.MotivationInterval,
	)
	cleanupJob := cleanup.NewCleanupJob(sessionRepo, notificationRepo, logger, cfg.NotificationRetention())

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral), logger)
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:              logger,
		TokenValidator:      validator,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		RateLimiter:         rateLimiter,
		HealthChecker:       db,
		MetricsHandler:      metrics.SetupMetricsRoute(reg),
		Registry:            registry,
		ReadMarker:          notificationService,
		WSSendBuffer:        cfg.WSSendBuffer,
		AuthService:         authService,
		NotificationService: notificationService,
		ReminderService:     reminderService,
		MotivationService:   motivationService,
		MoodService:         moodService,
		UserService:         userService,
	})

	return &server{
		cfg:    cfg,
		logger: logger,
		// WriteTimeoutはWebSocketに影響しない（アップグレード時にデッドラインが解除される）
		http: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		registry:    registry,
		rateLimiter: rateLimiter,
		reminders:   reminderScheduler,
		motivation:  motivationScheduler,
		cleanup:     cleanupJob,
	}, nil
}

func newMailer(cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	if !cfg.MailEnabled() {
		logger.Warn("SMTP_HOSTが未設定のため、メールはログ出力のみ行います")
		return mail.NewLogSender(logger), nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		From:       cfg.MailFrom,
		RatePerSec: cfg.MailRatePerSec,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure mail sender: %w", err)
	}
	return mail.NewRetrySender(sender, 3, logger), nil
}

// start はスケジューラとクリーンアップジョブを起動し、HTTPサーバーの待ち受けを開始する。
// 待ち受けに失敗した場合はerrChにエラーを送る。
func (s *server) start(ctx context.Context, errCh chan<- error) error {
	if err := s.cleanup.Start(s.cfg.CleanupSchedule); err != nil {
		return err
	}
	s.reminders.Start(ctx)
	s.motivation.Start(ctx)

	go func() {
		s.logger.Info("API server starting", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server listen error: %w", err)
		}
	}()
	return nil
}

// shutdown はグレースフルシャットダウンを行う。
// 実行中の配信を終えてからHTTPの受付を止め、最後にWebSocket接続を送信キューを流したうえで閉じる。
func (s *server) shutdown(ctx context.Context) error {
	s.reminders.Stop()
	s.motivation.Stop()
	s.cleanup.Stop(ctx)

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	if err := s.registry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("realtime shutdown failed: %w", err))
	}
	s.rateLimiter.Stop()

	return errors.Join(errs...)
}
