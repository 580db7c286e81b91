// Package reminder はリマインダーの定期確認と発火を行うスケジューラを提供する。
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/moodmate/internal/metrics"
	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/notification"
	"github.com/hitoshi/moodmate/internal/repository"
	"github.com/hitoshi/moodmate/internal/security"
)

// ErrTickInProgress は前回の確認がまだ実行中のためスキップしたことを示す。
var ErrTickInProgress = errors.New("reminder tick already in progress")

// Deliverer は通知の配信パイプライン。
type Deliverer interface {
	Deliver(ctx context.Context, kind notification.Kind, userID, message string) (*model.Notification, error)
}

// Result は1回の確認の集計。
type Result struct {
	Due      int // 発火対象として取得した件数
	Fired    int // 配信まで完了した件数
	Claimed  int // 他の実行が先に確定させていたためスキップした件数
	Failed   int // 確定または配信に失敗した件数
	Released int // 配信失敗により次回へ持ち越した件数
	Disabled int // 本文が空になるため配信せずに無効化した件数
}

type outcome int

const (
	outcomeFired outcome = iota
	outcomeClaimed
	outcomeFailed
	outcomeReleased
	outcomeDisabled
)

// Scheduler は一定間隔で発火対象のリマインダーを取得し、配信する。
//
// 各リマインダーは「次回状態の確定 → 配信」の順に処理する。
// 確定はAdvanceの条件付き更新で行うため、同じ回が二重に発火することはない。
// 確認は同時に1つしか実行されず、前回が終わっていないティックはスキップする。
type Scheduler struct {
	reminders      repository.ReminderRepository
	deliverer      Deliverer
	logger         *slog.Logger
	metrics        metrics.MetricsCollector
	interval       time.Duration
	maxConcurrency int
	sanitizer      *security.TextSanitizer
	now            func() time.Time

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler はSchedulerを生成する。
// intervalが0以下の場合は1分、maxConcurrencyが0以下の場合は10を使う。
func NewScheduler(
	reminders repository.ReminderRepository,
	deliverer Deliverer,
	logger *slog.Logger,
	mc metrics.MetricsCollector,
	interval time.Duration,
	maxConcurrency int,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Scheduler{
		reminders:      reminders,
		deliverer:      deliverer,
		logger:         logger,
		metrics:        mc,
		interval:       interval,
		maxConcurrency: maxConcurrency,
		sanitizer:      security.NewTextSanitizer(),
		now:            time.Now,
	}
}

// Start はバックグラウンドでスケジューラを起動する。起動直後に1回確認を行う。
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop はティッカーを止め、実行中の確認が終わるまで待つ。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("リマインダースケジューラを開始しました",
		slog.Duration("interval", s.interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインダースケジューラを停止しました")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick は停止要求で個々の配信が中断されないよう、キャンセルを切り離して確認を行う。
func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(context.WithoutCancel(ctx), s.now()); err != nil && !errors.Is(err, ErrTickInProgress) {
		s.logger.Error("リマインダー確認の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce はnow時点で発火対象のリマインダーを取得し、並列に処理する。
// 一覧取得に失敗した場合はエラーを返し、そのティックは何もしない。
// 個々のリマインダーの失敗は集計に含めるのみで、エラーとしては返さない。
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("前回のリマインダー確認が実行中のためスキップしました")
		return Result{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	defer func() { s.metrics.RecordReminderTick(time.Since(start)) }()

	due, err := s.reminders.ListDue(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list due reminders: %w", err)
	}

	res := Result{Due: len(due)}
	if len(due) == 0 {
		s.logger.Debug("発火対象のリマインダーはありません")
		return res, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.maxConcurrency)
	)
	for _, r := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(r *model.Reminder) {
			defer wg.Done()
			defer func() { <-sem }()

			o := s.fire(ctx, r)

			mu.Lock()
			defer mu.Unlock()
			switch o {
			case outcomeFired:
				res.Fired++
			case outcomeClaimed:
				res.Claimed++
			case outcomeReleased:
				res.Released++
				res.Failed++
			case outcomeDisabled:
				res.Disabled++
			default:
				res.Failed++
			}
		}(r)
	}
	wg.Wait()

	s.logger.Info("リマインダー確認が完了しました",
		slog.Int("due", res.Due),
		slog.Int("fired", res.Fired),
		slog.Int("skipped", res.Claimed),
		slog.Int("failed", res.Failed),
		slog.Int("disabled", res.Disabled),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}

// fire は1件のリマインダーの次回状態を確定させてから配信する。
// 配信に失敗した場合は通知が作成されていないため、確定を取り消して次回に持ち越す。
func (s *Scheduler) fire(ctx context.Context, r *model.Reminder) outcome {
	if s.sanitizer.Sanitize(r.Message) == "" {
		return s.disable(ctx, r)
	}

	next, active := r.Next()

	claimed, err := s.reminders.Advance(ctx, r.ID, r.Time, next, active)
	if err != nil {
		s.logger.Error("リマインダーの確定に失敗しました",
			slog.String("reminder_id", r.ID),
			slog.String("error", err.Error()),
		)
		return outcomeFailed
	}
	if !claimed {
		s.logger.Debug("リマインダーは既に処理済みです", slog.String("reminder_id", r.ID))
		return outcomeClaimed
	}

	if _, err := s.deliverer.Deliver(ctx, notification.KindReminder, r.UserID, r.Message); err != nil {
		s.logger.Error("リマインダーの配信に失敗しました",
			slog.String("reminder_id", r.ID),
			slog.String("user_id", r.UserID),
			slog.String("error", err.Error()),
		)
		if rerr := s.reminders.Release(ctx, r.ID, next, r.Time); rerr != nil {
			s.logger.Error("リマインダーの持ち越しに失敗しました",
				slog.String("reminder_id", r.ID),
				slog.String("error", rerr.Error()),
			)
			return outcomeFailed
		}
		return outcomeReleased
	}

	s.metrics.RecordReminderFired(string(r.Repeat))
	s.logger.Info("リマインダーを配信しました",
		slog.String("reminder_id", r.ID),
		slog.String("user_id", r.UserID),
		slog.String("repeat", string(r.Repeat)),
		slog.Time("next", next),
		slog.Bool("active", active),
	)
	return outcomeFired
}

// disable は配信できない本文のリマインダーを発火させずに無効化する。
// 時刻は変えないため、本文を直して再度有効にすれば同じ回から発火する。
func (s *Scheduler) disable(ctx context.Context, r *model.Reminder) outcome {
	ok, err := s.reminders.Advance(ctx, r.ID, r.Time, r.Time, false)
	if err != nil {
		s.logger.Error("リマインダーの無効化に失敗しました",
			slog.String("reminder_id", r.ID),
			slog.String("error", err.Error()),
		)
		return outcomeFailed
	}
	if !ok {
		return outcomeClaimed
	}
	s.logger.Warn("本文が空になるためリマインダーを無効化しました",
		slog.String("reminder_id", r.ID),
		slog.String("user_id", r.UserID),
	)
	return outcomeDisabled
}
