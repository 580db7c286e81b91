// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと、保持期間（デフォルト90日）を超過した既読通知を
// cron式で指定したスケジュールで削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const runTimeout = 5 * time.Minute

// SessionPurger は期限切れセッションを削除する。
type SessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NotificationPurger は古い既読通知を削除する。
type NotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result は1回のクリーンアップ結果。
type Result struct {
	Sessions      int64
	Notifications int64
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 削除は冪等であり、対象がなくてもエラーにならない。
type CleanupJob struct {
	sessions      SessionPurger
	notifications NotificationPurger
	logger        *slog.Logger
	retention     time.Duration
	now           func() time.Time

	cron *cron.Cron
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionが0以下の場合は90日を使用する。
func NewCleanupJob(sessions SessionPurger, notifications NotificationPurger, logger *slog.Logger, retention time.Duration) *CleanupJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &CleanupJob{
		sessions:      sessions,
		notifications: notifications,
		logger:        logger,
		retention:     retention,
		now:           time.Now,
	}
}

// Run は期限切れセッションと保持期間を超過した既読通知を削除する。
// 一方が失敗しても他方は実行し、両方のエラーをまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) (Result, error) {
	start := j.now()
	var res Result
	var errs []error

	n, err := j.sessions.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("failed to delete expired sessions: %w", err))
	}
	res.Sessions = n

	cutoff := start.Add(-j.retention)
	n, err = j.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("既読通知の削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		errs = append(errs, fmt.Errorf("failed to delete read notifications: %w", err))
	}
	res.Notifications = n

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", res.Sessions),
		slog.Int64("deleted_notifications", res.Notifications),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return res, errors.Join(errs...)
}

// Start はcron式specに従ってジョブの定期実行を開始する。
// 前回の実行が終わっていない場合はその回をスキップする。
func (j *CleanupJob) Start(spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, j.runScheduled); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	j.cron = c
	c.Start()

	j.logger.Info("クリーンアップジョブのスケジュールを開始しました",
		slog.String("schedule", spec),
		slog.Duration("retention", j.retention),
	)
	return nil
}

// Stop はスケジュールを停止し、実行中のジョブの完了を待つ。
func (j *CleanupJob) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		j.logger.Warn("クリーンアップジョブの完了を待たずに停止しました")
	}
}

func (j *CleanupJob) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	_, _ = j.Run(ctx)
}
