// Package app はサブコマンドの解析と各モードの起動処理を提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/moodmate/internal/config"
	"github.com/hitoshi/moodmate/internal/database"
	"github.com/hitoshi/moodmate/internal/logger"
	"github.com/hitoshi/moodmate/internal/motivation"
	"github.com/hitoshi/moodmate/internal/repository"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 設定読み込み前にログを使えるようにする
	log := logger.SetupDefault(w, "info")

	cfg, err := config.Load()
	if err != nil {
		log.Error("設定の読み込みに失敗しました", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, logger.SetupDefault(w, cfg.LogLevel), nil
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
		return runHealthcheck("http://localhost:" + port)
	}

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log, ParseMigrateAction(args))
	case CommandSeed:
		return runSeed(cfg, log)
	default:
		return runServe(cfg, log)
	}
}

// runServe はAPIサーバーとスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db); err != nil {
		return err
	}
	log.Info("database connection established")

	srv, err := newServer(cfg, db, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if err := srv.start(ctx, errCh); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case serveErr = <-errCh:
		log.Error("server stopped unexpectedly", slog.String("error", serveErr.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.shutdown(shutdownCtx); err != nil {
		return err
	}
	if serveErr != nil {
		return serveErr
	}

	log.Info("stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// upは未適用分をすべて適用し、downは最新の1つを取り消し、statusは現在の状態のみ表示する。
func runMigrate(cfg *config.Config, log *slog.Logger, action MigrateAction) error {
	log.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	var (
		status database.MigrationStatus
		err    error
	)
	switch action {
	case MigrateDown:
		status, err = database.RollbackMigration(cfg.DatabaseURL)
	case MigrateStatus:
		status, err = database.CurrentMigration(cfg.DatabaseURL)
	default:
		status, err = database.RunMigrations(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", action, err)
	}

	log.Info("database migration finished",
		slog.String("action", string(action)),
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	if status.Dirty {
		return fmt.Errorf("schema version %d is dirty", status.Version)
	}
	return nil
}

// runSeed は励ましメッセージのカタログが空の場合にデフォルトメッセージを投入する。
func runSeed(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Ping(ctx, db); err != nil {
		return err
	}

	repo := repository.NewPostgresMotivationRepo(db)
	svc := motivation.NewService(repo, motivation.NewPicker(repo), log)
	n, err := svc.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	log.Info("seed completed", slog.Int("inserted", n))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/health")
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
